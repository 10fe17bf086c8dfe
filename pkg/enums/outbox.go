package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateShipment    OutboxAggregateType = "shipment"
	AggregateSeller      OutboxAggregateType = "seller"
	AggregateResaleOffer OutboxAggregateType = "resale_offer"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShipment,
	AggregateSeller,
	AggregateResaleOffer,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated      OutboxEventType = "order_created"
	EventOrderCanceled     OutboxEventType = "order_canceled"
	EventOrderRefunded     OutboxEventType = "order_refunded"
	EventOrderShipped      OutboxEventType = "order_shipped"
	EventOrderDelivered    OutboxEventType = "order_delivered"
	EventPayoutRecorded    OutboxEventType = "payout_recorded"
	EventOfferSubmitted    OutboxEventType = "offer_submitted"
	EventOfferDecided      OutboxEventType = "offer_decided"
	EventPointsAwarded     OutboxEventType = "points_awarded"
	EventTrackingAvailable OutboxEventType = "tracking_available"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCanceled,
	EventOrderRefunded,
	EventOrderShipped,
	EventOrderDelivered,
	EventPayoutRecorded,
	EventOfferSubmitted,
	EventOfferDecided,
	EventPointsAwarded,
	EventTrackingAvailable,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
