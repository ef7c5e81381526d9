package domain

// FixedRoute is a named, pre-priced origin-destination pair.
type FixedRoute struct {
	ID                   string
	Name                 string
	StartLocation        string
	Destination          string
	DistanceKm           float64
	EstimatedDurationMin float64
	MarketPrice          float64 // zero when not set
	OurPrice             float64 // zero when not set
	Currency             string
}

// Fare is the computed price of a trip.
type Fare struct {
	Amount       float64
	Currency     string
	IsDiscounted bool
}
