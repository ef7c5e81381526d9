package repository

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// ListByRideRequest retrieves all payment attempts for a ride request, newest first.
	ListByRideRequest(ctx context.Context, rideRequestID string) ([]*domain.Payment, error)

	// Confirm marks a payment confirmed and propagates the confirmation to the
	// owning ride request in one transaction. confirmed_at is only set once.
	Confirm(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error)

	// ConfirmPending confirms a pending payment and its ride request in one
	// transaction. ErrStateConflict when the payment is no longer pending or
	// the request's payment was failed by an administrator.
	ConfirmPending(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error)

	// ConfirmDetected confirms a ride request's payment found on the ledger,
	// together with its latest pending payment attempt, in one transaction.
	// Only requests whose payment is still open change; changed reports
	// whether one did. payment is nil when there was no pending attempt.
	ConfirmDetected(ctx context.Context, rideRequestID, txHash string, at time.Time) (payment *domain.Payment, changed bool, err error)

	// UpdateStatus sets the status of a payment and, when non-empty, its tx hash.
	// The owning ride request's payment status follows in the same transaction.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, txHash string) error

	// ExpirePendingBefore marks pending payments created before cutoff as expired.
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
