package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/types"
)

// SellerProfile holds the seller-side settings for a member. Labels are
// purchased against the seller's own carrier account, so a nil
// CarrierAccountID means shipping rates are unavailable for that seller.
type SellerProfile struct {
	MemberID         uuid.UUID      `gorm:"column:member_id;type:uuid;primaryKey"`
	BusinessName     *string        `gorm:"column:business_name"`
	AcceptsCash      bool           `gorm:"column:accepts_cash;not null;default:false"`
	CarrierAccountID *string        `gorm:"column:carrier_account_id"`
	OriginAddress    *types.Address `gorm:"column:origin_address;type:jsonb;serializer:json"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCarrierAccount reports whether the seller connected a shipping account.
func (p *SellerProfile) HasCarrierAccount() bool {
	return p != nil && p.CarrierAccountID != nil && *p.CarrierAccountID != ""
}
