package domain

import "time"

// RideRequestStatus represents the lifecycle status of a ride request.
type RideRequestStatus string

const (
	RideRequestStatusPending   RideRequestStatus = "pending"
	RideRequestStatusConfirmed RideRequestStatus = "confirmed"
	RideRequestStatusCompleted RideRequestStatus = "completed"
	RideRequestStatusCancelled RideRequestStatus = "cancelled"
)

// DefaultPassengerCount is used when a request does not state its party size.
const DefaultPassengerCount = 1

// RideRequest represents a passenger's need for transport on a route at a time.
type RideRequest struct {
	ID             string
	RequesterName  string
	StartLocation  string
	EndLocation    string
	RequestedTime  time.Time
	PassengerCount int
	Luggage        []LuggageItem

	Status RideRequestStatus

	PaymentRequired bool
	PaymentAmount   float64
	PaymentCurrency string
	PaymentStatus   RequestPaymentStatus
	TxHash          string
	SenderWallet    string

	FixedRouteID *string
	VehicleID    *string
	RideGroupID  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Passengers returns the party size, defaulting missing counts to one.
func (r *RideRequest) Passengers() int {
	if r.PassengerCount < 1 {
		return DefaultPassengerCount
	}
	return r.PassengerCount
}

// LuggageVolume returns the total luggage volume of the request in liters.
func (r *RideRequest) LuggageVolume() float64 {
	return TotalVolume(r.Luggage)
}

// IsMatched reports whether the request has been placed into a ride group.
func (r *RideRequest) IsMatched() bool {
	return r.RideGroupID != nil && *r.RideGroupID != ""
}

// IsTerminal reports whether the request can no longer change through normal flows.
func (r *RideRequest) IsTerminal() bool {
	return r.Status == RideRequestStatusCompleted || r.Status == RideRequestStatusCancelled
}
