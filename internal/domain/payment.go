package domain

import (
	"math"
	"time"
)

// PaymentStatus represents the current status of a payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusConfirmed, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// RequestPaymentStatus is the payment status tracked on a ride request.
type RequestPaymentStatus string

const (
	RequestPaymentUnpaid    RequestPaymentStatus = "unpaid"
	RequestPaymentPending   RequestPaymentStatus = "pending"
	RequestPaymentConfirmed RequestPaymentStatus = "confirmed"
	RequestPaymentFailed    RequestPaymentStatus = "failed"
)

// AutomaticTransitions are the payment status moves automated flows may make.
// Moving confirmed or failed back to pending is reserved for administrative re-audit.
var AutomaticTransitions = map[RequestPaymentStatus][]RequestPaymentStatus{
	RequestPaymentUnpaid:  {RequestPaymentPending, RequestPaymentConfirmed},
	RequestPaymentPending: {RequestPaymentConfirmed},
}

// CanTransitionAutomatically reports whether an automated flow may move from one status to another.
func CanTransitionAutomatically(from, to RequestPaymentStatus) bool {
	for _, s := range AutomaticTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AutomaticSources lists the statuses an automated flow may move to from, in
// declaration order.
func AutomaticSources(to RequestPaymentStatus) []RequestPaymentStatus {
	var sources []RequestPaymentStatus
	for _, from := range []RequestPaymentStatus{RequestPaymentUnpaid, RequestPaymentPending, RequestPaymentConfirmed, RequestPaymentFailed} {
		if CanTransitionAutomatically(from, to) {
			sources = append(sources, from)
		}
	}
	return sources
}

// RequestStatusFor maps a payment attempt status to the ride request payment status.
// Expired attempts say nothing about the request and report false.
func RequestStatusFor(s PaymentStatus) (RequestPaymentStatus, bool) {
	switch s {
	case PaymentStatusConfirmed:
		return RequestPaymentConfirmed, true
	case PaymentStatusFailed:
		return RequestPaymentFailed, true
	case PaymentStatusPending:
		return RequestPaymentPending, true
	default:
		return "", false
	}
}

// Payment represents one payment attempt for a ride request.
type Payment struct {
	ID            string
	RideRequestID string
	Amount        float64
	Currency      string
	WalletAddress string
	PaymentMethod string
	TxHash        string
	Status        PaymentStatus
	ConfirmedAt   *time.Time
	CreatedAt     time.Time
}

// DefaultAmountEpsilon absorbs drift from converting on-chain base units to display units.
const DefaultAmountEpsilon = 0.001

// AmountsMatch compares two amounts within epsilon.
func AmountsMatch(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
