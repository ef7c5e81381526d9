package service

import (
	"errors"
	"fmt"
)

var (
	// ErrSchedulingConflict is returned when a vehicle is already committed in the requested window.
	ErrSchedulingConflict = errors.New("vehicle already committed in the requested window")

	// ErrVerificationInconclusive is returned when the ledger could not give a definite answer.
	// The payment is left untouched; the caller may retry or fall back to manual confirmation.
	ErrVerificationInconclusive = errors.New("payment verification inconclusive")

	// ErrPersistenceConflict is returned when a concurrent write won the race for the same group.
	ErrPersistenceConflict = errors.New("concurrent update, try again")

	// ErrDetectionInProgress is returned when another detection for the same request is running.
	ErrDetectionInProgress = errors.New("payment detection already in progress")

	// ErrPaymentNotPending is returned when an automated flow would move a payment
	// out of a state only an administrator may leave, such as failed or expired.
	ErrPaymentNotPending = errors.New("payment is not awaiting confirmation")

	// ErrInvalidRideRequestID is returned when ride request ID is empty.
	ErrInvalidRideRequestID = errors.New("invalid ride request id")

	// ErrInvalidRouteID is returned when route ID is empty.
	ErrInvalidRouteID = errors.New("invalid route id")

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = errors.New("invalid vehicle id")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidGroupID is returned when group ID is empty.
	ErrInvalidGroupID = errors.New("invalid group id")

	// ErrInvalidGroupStatus is returned when a group status is unknown.
	ErrInvalidGroupStatus = errors.New("invalid ride group status")

	// ErrInvalidPaymentAmount is returned when payment amount is invalid.
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")

	// ErrInvalidCurrency is returned when currency is empty.
	ErrInvalidCurrency = errors.New("invalid currency")

	// ErrInvalidPaymentStatus is returned when a status is not a known payment status.
	ErrInvalidPaymentStatus = errors.New("invalid payment status")

	// ErrInvalidTxHash is returned when a transaction hash is required but empty.
	ErrInvalidTxHash = errors.New("invalid transaction hash")

	// ErrInvalidWallet is returned when a wallet address is empty.
	ErrInvalidWallet = errors.New("invalid wallet address")

	// ErrMissingSenderWallet is returned when auto-detection has no sender wallet to look for.
	ErrMissingSenderWallet = errors.New("ride request has no sender wallet")

	// ErrInvalidRideRequest is returned when a ride request fails validation.
	ErrInvalidRideRequest = errors.New("invalid ride request")

	// ErrInvalidVehicle is returned when a vehicle fails validation.
	ErrInvalidVehicle = errors.New("invalid vehicle")

	// ErrInvalidRoute is returned when a route fails validation.
	ErrInvalidRoute = errors.New("invalid route")

	// ErrVehicleInactive is returned when an inactive vehicle is assigned.
	ErrVehicleInactive = errors.New("vehicle is not active")

	// ErrRideRequestClosed is returned when a completed or cancelled request is changed.
	ErrRideRequestClosed = errors.New("ride request is completed or cancelled")

	// ErrRouteRequired is returned when grouping a request that has no fixed route.
	ErrRouteRequired = errors.New("ride request has no fixed route")

	// ErrAlreadyGrouped is returned when matching a request that already belongs to a group.
	ErrAlreadyGrouped = errors.New("ride request already belongs to a group")

	// ErrRouteEstimatorUnavailable is returned when no route estimator is configured.
	ErrRouteEstimatorUnavailable = errors.New("route estimator not configured")
)

// CapacityKind names the vehicle limit a group would exceed.
type CapacityKind string

const (
	CapacityPassengers CapacityKind = "passengers"
	CapacityLuggage    CapacityKind = "luggage"
)

// CapacityExceededError reports that admitting a party would exceed a vehicle limit.
type CapacityExceededError struct {
	Kind      CapacityKind
	Requested float64
	Limit     float64
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded (%s): %g > %g", e.Kind, e.Requested, e.Limit)
}
