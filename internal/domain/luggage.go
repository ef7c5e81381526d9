package domain

import "fmt"

// LuggageSize is a coarse size category for a luggage item.
type LuggageSize string

const (
	LuggageSizeSmall      LuggageSize = "small"
	LuggageSizeMedium     LuggageSize = "medium"
	LuggageSizeLarge      LuggageSize = "large"
	LuggageSizeExtraLarge LuggageSize = "extra_large"
)

// Dimensions are length, width and height in centimeters.
type Dimensions struct {
	LengthCm float64
	WidthCm  float64
	HeightCm float64
}

// presetDimensions maps size categories to the dimensions assumed for them.
var presetDimensions = map[LuggageSize]Dimensions{
	LuggageSizeSmall:      {LengthCm: 40, WidthCm: 30, HeightCm: 20},
	LuggageSizeMedium:     {LengthCm: 60, WidthCm: 40, HeightCm: 25},
	LuggageSizeLarge:      {LengthCm: 75, WidthCm: 50, HeightCm: 30},
	LuggageSizeExtraLarge: {LengthCm: 90, WidthCm: 60, HeightCm: 35},
}

// LuggageItem is one entry of a ride request's luggage manifest.
// Explicit dimensions take precedence over the size category.
type LuggageItem struct {
	Size     LuggageSize `json:"size,omitempty"`
	LengthCm float64     `json:"length,omitempty"`
	WidthCm  float64     `json:"width,omitempty"`
	HeightCm float64     `json:"height,omitempty"`
	Quantity int         `json:"quantity"`
}

// Dimensions resolves the item's dimensions.
func (l LuggageItem) Dimensions() Dimensions {
	if l.LengthCm > 0 && l.WidthCm > 0 && l.HeightCm > 0 {
		return Dimensions{LengthCm: l.LengthCm, WidthCm: l.WidthCm, HeightCm: l.HeightCm}
	}
	return presetDimensions[l.Size]
}

// Volume returns length x width x height x quantity in liters.
func (l LuggageItem) Volume() float64 {
	d := l.Dimensions()
	qty := l.Quantity
	if qty < 1 {
		qty = 1
	}
	return d.LengthCm * d.WidthCm * d.HeightCm * float64(qty) / 1000
}

// Validate checks that the item describes a measurable piece of luggage.
func (l LuggageItem) Validate() error {
	if l.Quantity < 1 {
		return fmt.Errorf("luggage quantity must be at least 1, got %d", l.Quantity)
	}
	if l.LengthCm < 0 || l.WidthCm < 0 || l.HeightCm < 0 {
		return fmt.Errorf("luggage dimensions must not be negative")
	}
	hasDims := l.LengthCm > 0 && l.WidthCm > 0 && l.HeightCm > 0
	if !hasDims {
		if _, ok := presetDimensions[l.Size]; !ok {
			return fmt.Errorf("unknown luggage size %q", l.Size)
		}
	}
	return nil
}

// TotalVolume sums the volume of all items in liters.
func TotalVolume(items []LuggageItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Volume()
	}
	return total
}
