package enums

import "fmt"

// FulfillmentType is the delivery mode chosen per order line.
type FulfillmentType string

const (
	FulfillmentTypeShip          FulfillmentType = "ship"
	FulfillmentTypeLocalDelivery FulfillmentType = "local_delivery"
	FulfillmentTypePickup        FulfillmentType = "pickup"
)

var validFulfillmentTypes = []FulfillmentType{
	FulfillmentTypeShip,
	FulfillmentTypeLocalDelivery,
	FulfillmentTypePickup,
}

// String implements fmt.Stringer.
func (f FulfillmentType) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentType.
func (f FulfillmentType) IsValid() bool {
	for _, candidate := range validFulfillmentTypes {
		if candidate == f {
			return true
		}
	}
	return false
}

// RequiresShipping reports whether the mode involves a purchased label.
func (f FulfillmentType) RequiresShipping() bool {
	return f == FulfillmentTypeShip
}

// ParseFulfillmentType converts raw input into a FulfillmentType.
func ParseFulfillmentType(value string) (FulfillmentType, error) {
	for _, candidate := range validFulfillmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment type %q", value)
}
