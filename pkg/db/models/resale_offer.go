package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// ResaleOffer is a buyer's proposed price on a resale listing. At most one
// pending offer may exist per (buyer, item) pair.
type ResaleOffer struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreItemID uuid.UUID         `gorm:"column:store_item_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null;index"`
	AmountCents int               `gorm:"column:amount_cents;not null"`
	Message     *string           `gorm:"column:message"`
	Status      enums.OfferStatus `gorm:"column:status;type:offer_status;not null;default:'pending'"`
	DecidedAt   *time.Time        `gorm:"column:decided_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
