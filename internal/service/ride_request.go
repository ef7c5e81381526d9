package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

const defaultListLimit = 100

// RideRequestService handles the ride request lifecycle.
type RideRequestService struct {
	requestRepo repository.RideRequestRepository
	fares       *FareService
	grouping    *GroupingService
}

// NewRideRequestService creates a new RideRequestService.
func NewRideRequestService(
	requestRepo repository.RideRequestRepository,
	fares *FareService,
	grouping *GroupingService,
) *RideRequestService {
	return &RideRequestService{
		requestRepo: requestRepo,
		fares:       fares,
		grouping:    grouping,
	}
}

// CreateRideRequestRequest contains the parameters for posting a ride request.
type CreateRideRequestRequest struct {
	RequesterName   string
	StartLocation   string
	EndLocation     string
	RequestedTime   time.Time
	PassengerCount  int
	Luggage         []domain.LuggageItem
	FixedRouteID    *string
	VehicleID       *string // used for pricing only; vehicles are assigned by matching
	PaymentRequired bool
	SenderWallet    string
}

// Create validates and stores a new pending ride request. Requests on a
// fixed route are priced at creation so the amount owed is persisted.
func (s *RideRequestService) Create(ctx context.Context, req CreateRideRequestRequest) (*domain.RideRequest, error) {
	if strings.TrimSpace(req.RequesterName) == "" {
		return nil, fmt.Errorf("%w: requester name is required", ErrInvalidRideRequest)
	}
	if strings.TrimSpace(req.StartLocation) == "" || strings.TrimSpace(req.EndLocation) == "" {
		return nil, fmt.Errorf("%w: start and end locations are required", ErrInvalidRideRequest)
	}
	if req.RequestedTime.IsZero() {
		return nil, fmt.Errorf("%w: requested time is required", ErrInvalidRideRequest)
	}
	if req.PassengerCount < 0 {
		return nil, fmt.Errorf("%w: passenger count must be positive", ErrInvalidRideRequest)
	}
	for _, item := range req.Luggage {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRideRequest, err)
		}
	}

	passengers := req.PassengerCount
	if passengers == 0 {
		passengers = domain.DefaultPassengerCount
	}

	now := time.Now()
	rideReq := &domain.RideRequest{
		ID:              uuid.New().String(),
		RequesterName:   strings.TrimSpace(req.RequesterName),
		StartLocation:   strings.TrimSpace(req.StartLocation),
		EndLocation:     strings.TrimSpace(req.EndLocation),
		RequestedTime:   req.RequestedTime,
		PassengerCount:  passengers,
		Luggage:         req.Luggage,
		Status:          domain.RideRequestStatusPending,
		PaymentRequired: req.PaymentRequired,
		PaymentStatus:   domain.RequestPaymentUnpaid,
		SenderWallet:    strings.TrimSpace(req.SenderWallet),
		FixedRouteID:    req.FixedRouteID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if rideReq.SenderWallet != "" {
		rideReq.PaymentStatus = domain.RequestPaymentPending
	}

	if req.FixedRouteID != nil && *req.FixedRouteID != "" {
		fare, err := s.fares.Calculate(ctx, *req.FixedRouteID, req.VehicleID)
		if err != nil {
			return nil, err
		}
		rideReq.PaymentAmount = fare.Amount
		rideReq.PaymentCurrency = fare.Currency
	}

	if err := s.requestRepo.Create(ctx, rideReq); err != nil {
		return nil, err
	}

	return rideReq, nil
}

// Get retrieves a ride request by ID.
func (s *RideRequestService) Get(ctx context.Context, id string) (*domain.RideRequest, error) {
	if id == "" {
		return nil, ErrInvalidRideRequestID
	}
	return s.requestRepo.GetByID(ctx, id)
}

// List retrieves ride requests matching the filter.
func (s *RideRequestService) List(ctx context.Context, filter repository.RideRequestFilter) ([]*domain.RideRequest, error) {
	if filter.Limit <= 0 || filter.Limit > defaultListLimit {
		filter.Limit = defaultListLimit
	}
	return s.requestRepo.List(ctx, filter)
}

// Match runs grouping for the request and, once it rides in a vehicle,
// re-prices it against that vehicle.
func (s *RideRequestService) Match(ctx context.Context, id string, vehicleID *string) (*MatchResult, error) {
	result, err := s.grouping.Match(ctx, MatchRequest{RideRequestID: id, VehicleID: vehicleID})
	if err != nil {
		return nil, err
	}
	if result.Outcome == OutcomeUnmatched {
		return result, nil
	}

	if err := s.reprice(ctx, id, result.Group); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *RideRequestService) reprice(ctx context.Context, id string, group *domain.RideGroup) error {
	rideReq, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rideReq.PaymentStatus == domain.RequestPaymentConfirmed {
		return nil
	}

	vehicleID := group.VehicleID
	fare, err := s.fares.Calculate(ctx, group.FixedRouteID, &vehicleID)
	if err != nil {
		return err
	}

	return s.requestRepo.SetPaymentTerms(ctx, id, rideReq.PaymentRequired, fare.Amount, fare.Currency)
}

// UpdateStatus moves a request through its lifecycle. Completed and
// cancelled requests are closed. Cancelling a grouped request frees its seat.
func (s *RideRequestService) UpdateStatus(ctx context.Context, id string, status domain.RideRequestStatus) (*domain.RideRequest, error) {
	if id == "" {
		return nil, ErrInvalidRideRequestID
	}
	switch status {
	case domain.RideRequestStatusPending, domain.RideRequestStatusConfirmed,
		domain.RideRequestStatusCompleted, domain.RideRequestStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRideRequest, status)
	}

	rideReq, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rideReq.IsTerminal() {
		return nil, ErrRideRequestClosed
	}

	if status == domain.RideRequestStatusCancelled && rideReq.IsMatched() {
		if _, err := s.grouping.RemoveMember(ctx, *rideReq.RideGroupID, rideReq.ID); err != nil {
			return nil, err
		}
	}

	if err := s.requestRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}

	return s.requestRepo.GetByID(ctx, id)
}

// SetSenderWallet records the wallet the passenger pays from.
func (s *RideRequestService) SetSenderWallet(ctx context.Context, id, wallet string) (*domain.RideRequest, error) {
	if id == "" {
		return nil, ErrInvalidRideRequestID
	}
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, ErrInvalidWallet
	}

	if err := s.requestRepo.SetSenderWallet(ctx, id, wallet); err != nil {
		return nil, err
	}

	return s.requestRepo.GetByID(ctx, id)
}
