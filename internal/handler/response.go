package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carpool/internal/ledger"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
// The error is attached to the context so instrumentation can report it.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondBadRequest sends a 400 with a fixed message.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var capacityErr *service.CapacityExceededError

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideRequestID),
		errors.Is(err, service.ErrInvalidRouteID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidGroupID),
		errors.Is(err, service.ErrInvalidGroupStatus),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrInvalidCurrency),
		errors.Is(err, service.ErrInvalidPaymentStatus),
		errors.Is(err, service.ErrInvalidTxHash),
		errors.Is(err, service.ErrInvalidWallet),
		errors.Is(err, service.ErrInvalidRideRequest),
		errors.Is(err, service.ErrInvalidVehicle),
		errors.Is(err, service.ErrInvalidRoute):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrSchedulingConflict),
		errors.Is(err, service.ErrPersistenceConflict),
		errors.Is(err, service.ErrAlreadyGrouped),
		errors.Is(err, service.ErrRideRequestClosed),
		errors.Is(err, service.ErrDetectionInProgress),
		errors.Is(err, service.ErrPaymentNotPending),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, repository.ErrVersionConflict),
		errors.Is(err, repository.ErrStateConflict),
		errors.Is(err, repository.ErrOverlappingGroup):
		return http.StatusConflict

	// Business rule errors
	case errors.As(err, &capacityErr),
		errors.Is(err, service.ErrVehicleInactive),
		errors.Is(err, service.ErrRouteRequired),
		errors.Is(err, service.ErrMissingSenderWallet):
		return http.StatusUnprocessableEntity

	// Service unavailable
	case errors.Is(err, service.ErrVerificationInconclusive),
		errors.Is(err, service.ErrRouteEstimatorUnavailable),
		errors.Is(err, ledger.ErrUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
