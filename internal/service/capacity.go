package service

import (
	"carpool/internal/domain"
)

// volumeTolerance absorbs float drift when summing liters.
const volumeTolerance = 1e-9

// CapacityDecision is the outcome of a capacity check.
// Violation is set when OK is false.
type CapacityDecision struct {
	OK        bool
	Violation *CapacityExceededError
}

// CapacityPlanner decides whether a party fits in a vehicle next to the
// parties already riding in it. A party is admitted entirely or not at all.
type CapacityPlanner struct{}

// NewCapacityPlanner creates a new CapacityPlanner.
func NewCapacityPlanner() *CapacityPlanner {
	return &CapacityPlanner{}
}

// CanFormGroup checks passengers first, then luggage volume.
func (p *CapacityPlanner) CanFormGroup(existing []*domain.RideRequest, candidate *domain.RideRequest, vehicle *domain.Vehicle) CapacityDecision {
	passengers := candidate.Passengers()
	volume := candidate.LuggageVolume()
	for _, req := range existing {
		passengers += req.Passengers()
		volume += req.LuggageVolume()
	}

	if passengers > vehicle.MaxPassengers {
		return CapacityDecision{Violation: &CapacityExceededError{
			Kind:      CapacityPassengers,
			Requested: float64(passengers),
			Limit:     float64(vehicle.MaxPassengers),
		}}
	}

	if limit := vehicle.CapacityVolume(); volume > limit+volumeTolerance {
		return CapacityDecision{Violation: &CapacityExceededError{
			Kind:      CapacityLuggage,
			Requested: volume,
			Limit:     limit,
		}}
	}

	return CapacityDecision{OK: true}
}
