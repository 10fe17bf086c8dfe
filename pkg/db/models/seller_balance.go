package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerBalance is the derived running balance per seller. It is mutated
// only alongside a BalanceTransaction in the same database transaction, so
// BalanceCents always equals the sum of that seller's transaction amounts.
type SellerBalance struct {
	SellerID          uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	BalanceCents      int64     `gorm:"column:balance_cents;not null;default:0"`
	TotalEarnedCents  int64     `gorm:"column:total_earned_cents;not null;default:0"`
	TotalPaidOutCents int64     `gorm:"column:total_paid_out_cents;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
