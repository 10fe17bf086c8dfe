package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
	"github.com/northwest-community/marketplace-backend/pkg/types"
)

// Order is one seller's portion of a buyer's checkout. Checkout splits the
// cart per distinct seller, so a single purchase can produce several orders.
type Order struct {
	ID                 uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber        int64               `gorm:"column:order_number;autoIncrement;uniqueIndex"`
	BuyerID            uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID           uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Status             enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'paid'"`
	PaymentMethod      enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'card'"`
	PaymentRef         *string             `gorm:"column:payment_ref"`
	SubtotalCents      int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents      int                 `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents         int                 `gorm:"column:total_cents;not null"`
	PointsAwarded      int                 `gorm:"column:points_awarded;not null;default:0"`
	ShippingAddress    *types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	DeliveryNote       *string             `gorm:"column:delivery_note"`
	CancelReason       *string             `gorm:"column:cancel_reason"`
	CancelNote         *string             `gorm:"column:cancel_note"`
	Package            *types.Parcel       `gorm:"column:package;type:jsonb;serializer:json"`
	ShippedWithOrderID *uuid.UUID          `gorm:"column:shipped_with_order_id;type:uuid"`
	ShippedAt          *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt        *time.Time          `gorm:"column:delivered_at"`
	CanceledAt         *time.Time          `gorm:"column:canceled_at"`
	RefundedAt         *time.Time          `gorm:"column:refunded_at"`
	Items              []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsCash reports whether no money was collected through the processor.
func (o *Order) IsCash() bool {
	return o != nil && (o.PaymentMethod == enums.PaymentMethodCash || o.PaymentRef == nil)
}

// ShortID is the order reference embedded in ledger descriptions and
// support conversations.
func (o *Order) ShortID() string {
	if o == nil {
		return ""
	}
	id := o.ID.String()
	if len(id) < 8 {
		return id
	}
	return id[:8]
}
