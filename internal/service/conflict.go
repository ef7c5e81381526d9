package service

import (
	"context"
	"time"

	"carpool/internal/repository"
)

// DefaultGroupWindow is the half-width of the grouping and conflict window.
const DefaultGroupWindow = 30 * time.Minute

// ConflictService detects double-booking of vehicles.
type ConflictService struct {
	groupRepo repository.RideGroupRepository
	window    time.Duration
}

// NewConflictService creates a new ConflictService. A non-positive window uses DefaultGroupWindow.
func NewConflictService(groupRepo repository.RideGroupRepository, window time.Duration) *ConflictService {
	if window <= 0 {
		window = DefaultGroupWindow
	}
	return &ConflictService{groupRepo: groupRepo, window: window}
}

// HasConflict reports whether the vehicle already has a pending or confirmed
// group within the window around requestedTime, on any route. fixedRouteID
// is accepted for callers that track it but does not narrow the check.
func (s *ConflictService) HasConflict(ctx context.Context, vehicleID, fixedRouteID string, requestedTime time.Time) (bool, error) {
	if vehicleID == "" {
		return false, ErrInvalidVehicleID
	}

	return s.groupRepo.ExistsCommittedForVehicle(ctx, vehicleID,
		requestedTime.Add(-s.window),
		requestedTime.Add(s.window),
	)
}

// Window returns the configured half-width of the conflict window.
func (s *ConflictService) Window() time.Duration {
	return s.window
}
