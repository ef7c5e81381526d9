package domain

import "time"

// Vehicle represents a driver's vehicle offered for shared rides.
type Vehicle struct {
	ID                 string
	DriverID           string
	LicensePlate       string
	MaxPassengers      int
	TrunkLengthCm      float64
	TrunkWidthCm       float64
	TrunkHeightCm      float64
	DiscountPercentage *float64 // nil means no discount
	IsActive           bool
	CreatedAt          time.Time
}

// CapacityVolume returns the trunk volume in liters.
func (v *Vehicle) CapacityVolume() float64 {
	return v.TrunkLengthCm * v.TrunkWidthCm * v.TrunkHeightCm / 1000
}

// HasDiscount reports whether a positive discount percentage is configured.
func (v *Vehicle) HasDiscount() bool {
	return v.DiscountPercentage != nil && *v.DiscountPercentage > 0
}
