package repository

import (
	"context"

	"carpool/internal/domain"
)

// RideRequestFilter narrows ride request listings.
type RideRequestFilter struct {
	Status       domain.RideRequestStatus // empty means any
	FixedRouteID string                   // empty means any
	Limit        int
}

// RideRequestRepository defines the persistence operations for ride requests.
type RideRequestRepository interface {
	// Create persists a new ride request.
	Create(ctx context.Context, req *domain.RideRequest) error

	// GetByID retrieves a ride request by ID.
	GetByID(ctx context.Context, id string) (*domain.RideRequest, error)

	// List retrieves ride requests matching the filter, newest first.
	List(ctx context.Context, filter RideRequestFilter) ([]*domain.RideRequest, error)

	// GetByIDs retrieves the given ride requests. Missing IDs are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.RideRequest, error)

	// UpdateStatus sets the lifecycle status of a ride request.
	UpdateStatus(ctx context.Context, id string, status domain.RideRequestStatus) error

	// UpdatePayment sets the payment status and, when non-empty, the tx hash.
	UpdatePayment(ctx context.Context, id string, status domain.RequestPaymentStatus, txHash string) error

	// SetSenderWallet records the wallet the passenger pays from and marks the
	// payment pending when it was unpaid.
	SetSenderWallet(ctx context.Context, id, wallet string) error

	// SetPaymentTerms stores whether payment is required and the amount owed.
	SetPaymentTerms(ctx context.Context, id string, required bool, amount float64, currency string) error

	// Assign links the request to a group and vehicle. Nil values clear the link.
	// Linking a request already linked to a different group returns ErrDuplicate.
	Assign(ctx context.Context, id string, groupID, vehicleID *string) error
}
