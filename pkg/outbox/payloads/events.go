package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// OrderCreatedEvent signals that checkout produced a new seller order.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	BuyerID       uuid.UUID           `json:"buyer_id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	TotalCents    int                 `json:"total_cents"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
}

// OrderCanceledEvent is emitted when a pre-shipment order is canceled.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Reason     string    `json:"reason,omitempty"`
	CanceledAt time.Time `json:"canceled_at"`
}

// OrderRefundedEvent is emitted when a shipped or delivered order is refunded.
type OrderRefundedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	AmountCents int       `json:"amount_cents"`
	RefundedAt  time.Time `json:"refunded_at"`
}

// OrderShippedEvent carries the label data when an order transitions to shipped.
type OrderShippedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Carrier        string    `json:"carrier,omitempty"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	ShippedAt      time.Time `json:"shipped_at"`
}

// OrderDeliveredEvent marks terminal successful fulfillment.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// PayoutRecordedEvent reports a balance withdrawal to downstream systems.
type PayoutRecordedEvent struct {
	SellerID    uuid.UUID `json:"seller_id"`
	AmountCents int64     `json:"amount_cents"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// OfferSubmittedEvent tells notification consumers a seller has a new offer.
type OfferSubmittedEvent struct {
	OfferID     uuid.UUID `json:"offer_id"`
	StoreItemID uuid.UUID `json:"store_item_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	SellerID    uuid.UUID `json:"seller_id"`
	AmountCents int       `json:"amount_cents"`
}

// OfferDecidedEvent reports the seller's accept/decline decision.
type OfferDecidedEvent struct {
	OfferID     uuid.UUID         `json:"offer_id"`
	StoreItemID uuid.UUID         `json:"store_item_id"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	Status      enums.OfferStatus `json:"status"`
	DecidedAt   time.Time         `json:"decided_at"`
}

// PointsAwardedEvent surfaces loyalty points granted at checkout.
type PointsAwardedEvent struct {
	MemberID uuid.UUID `json:"member_id"`
	OrderID  uuid.UUID `json:"order_id"`
	Points   int       `json:"points"`
}

// TrackingAvailableEvent tells the buyer a tracking number exists.
type TrackingAvailableEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TrackingNumber string    `json:"tracking_number"`
	TrackingURL    string    `json:"tracking_url,omitempty"`
}
