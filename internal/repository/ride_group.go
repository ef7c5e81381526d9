package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// AddMemberParams describes a conditional membership insert.
type AddMemberParams struct {
	Member          *domain.RideGroupMember
	ExpectedVersion int
	MaxPassengers   int
	MaxLuggage      float64
}

// RideGroupRepository defines the persistence operations for ride groups.
type RideGroupRepository interface {
	// CreateWithMember inserts a new group together with its first member.
	// Returns ErrOverlappingGroup when the vehicle is already committed in the window.
	CreateWithMember(ctx context.Context, group *domain.RideGroup, member *domain.RideGroupMember) error

	// GetByID retrieves a ride group by ID.
	GetByID(ctx context.Context, id string) (*domain.RideGroup, error)

	// FindPendingForRoute returns pending groups for a route whose requested
	// time lies within [from, to].
	FindPendingForRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.RideGroup, error)

	// ExistsCommittedForVehicle reports whether the vehicle has a pending or
	// confirmed group with requested time within [from, to], on any route.
	ExistsCommittedForVehicle(ctx context.Context, vehicleID string, from, to time.Time) (bool, error)

	// ListMembers returns the members of a group ordered by join time.
	ListMembers(ctx context.Context, groupID string) ([]*domain.RideGroupMember, error)

	// AddMember inserts a member and recomputes the group's totals from its
	// members in one transaction. Returns ErrVersionConflict when the group
	// changed since ExpectedVersion or the recomputed totals exceed the limits.
	AddMember(ctx context.Context, params AddMemberParams) (*domain.RideGroup, error)

	// RemoveMember deletes a request's membership and recomputes totals.
	RemoveMember(ctx context.Context, groupID, rideRequestID string) (*domain.RideGroup, error)

	// RecomputeTotals rewrites the group's totals from its members.
	RecomputeTotals(ctx context.Context, groupID string) (*domain.RideGroup, error)

	// UpdateStatus sets the status of a group.
	UpdateStatus(ctx context.Context, id string, status domain.RideGroupStatus) error
}
