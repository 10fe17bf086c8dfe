package models

import (
	"time"

	"github.com/google/uuid"
)

// Shipment is one purchased label. Co-shipped orders do not get their own
// rows; they point at the primary order via Order.ShippedWithOrderID.
type Shipment struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	RateID         string    `gorm:"column:rate_id;not null"`
	Carrier        string    `gorm:"column:carrier;not null"`
	Service        string    `gorm:"column:service;not null"`
	RateCents      int       `gorm:"column:rate_cents;not null"`
	LabelURL       string    `gorm:"column:label_url;not null"`
	TrackingNumber string    `gorm:"column:tracking_number;not null"`
	TrackingURL    *string   `gorm:"column:tracking_url"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
