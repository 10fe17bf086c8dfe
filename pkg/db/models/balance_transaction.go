package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// BalanceTransaction is an append-only ledger entry. Rows are never updated
// or deleted after creation; the transaction log is the audit trail for
// support and dispute resolution.
type BalanceTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID                    `gorm:"column:seller_id;type:uuid;not null;index"`
	OrderID     *uuid.UUID                   `gorm:"column:order_id;type:uuid"`
	Type        enums.BalanceTransactionType `gorm:"column:type;type:balance_transaction_type;not null"`
	AmountCents int64                        `gorm:"column:amount_cents;not null"`
	Description string                       `gorm:"column:description;not null"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
}
