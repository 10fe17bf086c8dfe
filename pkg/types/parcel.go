package types

import "fmt"

// Parcel is the measured package used for rating and label purchase.
type Parcel struct {
	WeightOz float64 `json:"weight_oz"`
	LengthIn float64 `json:"length_in"`
	WidthIn  float64 `json:"width_in"`
	HeightIn float64 `json:"height_in"`
}

// Validate rejects parcels a carrier would refuse outright.
func (p Parcel) Validate() error {
	if p.WeightOz <= 0 {
		return fmt.Errorf("parcel: weight must be positive")
	}
	if p.LengthIn <= 0 || p.WidthIn <= 0 || p.HeightIn <= 0 {
		return fmt.Errorf("parcel: dimensions must be positive")
	}
	return nil
}
