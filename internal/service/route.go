package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/maps"
	"carpool/internal/repository"
)

// RouteEstimator returns driving distance and duration between two places.
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination string) (*maps.Estimate, error)
}

// RouteService manages fixed routes.
type RouteService struct {
	routeRepo repository.RouteRepository
	estimator RouteEstimator
}

// NewRouteService creates a new RouteService. estimator may be nil, in which
// case routes must be created with explicit distance and duration.
func NewRouteService(routeRepo repository.RouteRepository, estimator RouteEstimator) *RouteService {
	return &RouteService{routeRepo: routeRepo, estimator: estimator}
}

// CreateRouteRequest contains the parameters for creating a fixed route.
// Zero distance or duration is filled in by the route estimator.
type CreateRouteRequest struct {
	Name                 string
	StartLocation        string
	Destination          string
	DistanceKm           float64
	EstimatedDurationMin float64
	MarketPrice          float64
	OurPrice             float64
	Currency             string
}

// Create stores a new fixed route.
func (s *RouteService) Create(ctx context.Context, req CreateRouteRequest) (*domain.FixedRoute, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRoute)
	}
	if strings.TrimSpace(req.StartLocation) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, fmt.Errorf("%w: start and destination are required", ErrInvalidRoute)
	}
	if strings.TrimSpace(req.Currency) == "" {
		return nil, ErrInvalidCurrency
	}
	if req.MarketPrice < 0 || req.OurPrice < 0 || (req.MarketPrice == 0 && req.OurPrice == 0) {
		return nil, fmt.Errorf("%w: a positive market price or our price is required", ErrInvalidRoute)
	}

	route := &domain.FixedRoute{
		ID:                   uuid.New().String(),
		Name:                 strings.TrimSpace(req.Name),
		StartLocation:        strings.TrimSpace(req.StartLocation),
		Destination:          strings.TrimSpace(req.Destination),
		DistanceKm:           req.DistanceKm,
		EstimatedDurationMin: req.EstimatedDurationMin,
		MarketPrice:          req.MarketPrice,
		OurPrice:             req.OurPrice,
		Currency:             strings.ToUpper(strings.TrimSpace(req.Currency)),
	}

	if route.DistanceKm <= 0 || route.EstimatedDurationMin <= 0 {
		if s.estimator == nil {
			return nil, ErrRouteEstimatorUnavailable
		}
		est, err := s.estimator.Estimate(ctx, route.StartLocation, route.Destination)
		if err != nil {
			return nil, err
		}
		if route.DistanceKm <= 0 {
			route.DistanceKm = math.Round(est.DistanceKm*10) / 10
		}
		if route.EstimatedDurationMin <= 0 {
			route.EstimatedDurationMin = math.Round(est.DurationMinutes)
		}
	}

	if err := s.routeRepo.Create(ctx, route); err != nil {
		return nil, err
	}

	return route, nil
}

// Get retrieves a fixed route by ID.
func (s *RouteService) Get(ctx context.Context, id string) (*domain.FixedRoute, error) {
	if id == "" {
		return nil, ErrInvalidRouteID
	}
	return s.routeRepo.GetByID(ctx, id)
}

// List retrieves all fixed routes.
func (s *RouteService) List(ctx context.Context) ([]*domain.FixedRoute, error) {
	return s.routeRepo.GetAll(ctx)
}
