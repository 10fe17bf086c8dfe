package enums

import "fmt"

// ListingStatus tracks whether a store item can still be purchased.
type ListingStatus string

const (
	ListingStatusActive  ListingStatus = "active"
	ListingStatusSoldOut ListingStatus = "sold_out"
)

var validListingStatuses = []ListingStatus{
	ListingStatusActive,
	ListingStatusSoldOut,
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ListingStatus.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}

// ListingType distinguishes new inventory from resale items.
type ListingType string

const (
	ListingTypeNew    ListingType = "new"
	ListingTypeResale ListingType = "resale"
)

var validListingTypes = []ListingType{
	ListingTypeNew,
	ListingTypeResale,
}

// String implements fmt.Stringer.
func (t ListingType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known ListingType.
func (t ListingType) IsValid() bool {
	for _, candidate := range validListingTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseListingType converts raw input into a ListingType.
func ParseListingType(value string) (ListingType, error) {
	for _, candidate := range validListingTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing type %q", value)
}
