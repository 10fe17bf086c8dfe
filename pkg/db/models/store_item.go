package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/enums"
)

// StoreItem is a sellable listing. Quantity never goes below zero: it is
// decremented only through the conditional order-placement update and
// incremented only through the cancellation/refund restore update.
type StoreItem struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID           `gorm:"column:seller_id;type:uuid;not null;index"`
	Title       string              `gorm:"column:title;not null"`
	Description *string             `gorm:"column:description"`
	PriceCents  int                 `gorm:"column:price_cents;not null"`
	Quantity    int                 `gorm:"column:quantity;not null;default:0"`
	Status      enums.ListingStatus `gorm:"column:status;type:listing_status;not null;default:'active'"`
	ListingType enums.ListingType   `gorm:"column:listing_type;type:listing_type;not null;default:'new'"`

	OffersShipping        bool `gorm:"column:offers_shipping;not null;default:false"`
	OffersLocalDelivery   bool `gorm:"column:offers_local_delivery;not null;default:false"`
	OffersPickup          bool `gorm:"column:offers_pickup;not null;default:true"`
	ShippingFeeCents      int  `gorm:"column:shipping_fee_cents;not null;default:0"`
	LocalDeliveryFeeCents int  `gorm:"column:local_delivery_fee_cents;not null;default:0"`

	AcceptsOffers bool `gorm:"column:accepts_offers;not null;default:false"`
	MinOfferCents int  `gorm:"column:min_offer_cents;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SupportsFulfillment reports whether the listing offers the given mode.
func (s *StoreItem) SupportsFulfillment(mode enums.FulfillmentType) bool {
	if s == nil {
		return false
	}
	switch mode {
	case enums.FulfillmentTypeShip:
		return s.OffersShipping
	case enums.FulfillmentTypeLocalDelivery:
		return s.OffersLocalDelivery
	case enums.FulfillmentTypePickup:
		return s.OffersPickup
	default:
		return false
	}
}

// FulfillmentFeeCents returns the per-line fee for the given mode.
func (s *StoreItem) FulfillmentFeeCents(mode enums.FulfillmentType) int {
	if s == nil {
		return 0
	}
	switch mode {
	case enums.FulfillmentTypeShip:
		return s.ShippingFeeCents
	case enums.FulfillmentTypeLocalDelivery:
		return s.LocalDeliveryFeeCents
	default:
		return 0
	}
}
