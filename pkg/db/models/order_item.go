package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// OrderItem snapshots one purchased line. UnitPriceCents is the listing
// price at purchase time and is immune to later price edits.
type OrderItem struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	StoreItemID     uuid.UUID             `gorm:"column:store_item_id;type:uuid;not null"`
	Title           string                `gorm:"column:title;not null"`
	Qty             int                   `gorm:"column:qty;not null"`
	UnitPriceCents  int                   `gorm:"column:unit_price_cents;not null"`
	FulfillmentType enums.FulfillmentType `gorm:"column:fulfillment_type;type:fulfillment_type;not null"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// TotalCents is the extended line total.
func (i OrderItem) TotalCents() int {
	return i.UnitPriceCents * i.Qty
}
