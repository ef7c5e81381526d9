package service

import (
	"context"
	"log"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// FareService prices trips on fixed routes.
// It is the only place fares are computed, for quotes and for the amount
// stored on a ride request alike.
type FareService struct {
	routeRepo   repository.RouteRepository
	vehicleRepo repository.VehicleRepository
	routeCache  redis.RouteCache
}

// NewFareService creates a new FareService. routeCache may be nil.
func NewFareService(
	routeRepo repository.RouteRepository,
	vehicleRepo repository.VehicleRepository,
	routeCache redis.RouteCache,
) *FareService {
	return &FareService{
		routeRepo:   routeRepo,
		vehicleRepo: vehicleRepo,
		routeCache:  routeCache,
	}
}

// Calculate returns the fare for a route, optionally applying a vehicle's discount.
//
// Without a discount the fare is the route's own price, falling back to the
// market price. With discount D the fare is the market price (or our price
// when no market price is set) multiplied by D/100.
func (s *FareService) Calculate(ctx context.Context, routeID string, vehicleID *string) (*domain.Fare, error) {
	if routeID == "" {
		return nil, ErrInvalidRouteID
	}

	route, err := s.route(ctx, routeID)
	if err != nil {
		return nil, err
	}

	var vehicle *domain.Vehicle
	if vehicleID != nil && *vehicleID != "" {
		vehicle, err = s.vehicleRepo.GetByID(ctx, *vehicleID)
		if err != nil {
			return nil, err
		}
	}

	return PriceRoute(route, vehicle), nil
}

// PriceRoute computes the fare for an already loaded route and vehicle.
func PriceRoute(route *domain.FixedRoute, vehicle *domain.Vehicle) *domain.Fare {
	if vehicle == nil || !vehicle.HasDiscount() {
		amount := route.OurPrice
		if amount <= 0 {
			amount = route.MarketPrice
		}
		return &domain.Fare{Amount: amount, Currency: route.Currency}
	}

	base := route.MarketPrice
	if base <= 0 {
		base = route.OurPrice
	}

	return &domain.Fare{
		Amount:       base * (*vehicle.DiscountPercentage / 100),
		Currency:     route.Currency,
		IsDiscounted: true,
	}
}

// route loads a fixed route, reading through the cache when one is configured.
func (s *FareService) route(ctx context.Context, routeID string) (*domain.FixedRoute, error) {
	if s.routeCache != nil {
		cached, err := s.routeCache.GetRoute(ctx, routeID)
		if err != nil {
			log.Printf("route cache read failed for %s: %v", routeID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	route, err := s.routeRepo.GetByID(ctx, routeID)
	if err != nil {
		return nil, err
	}

	if s.routeCache != nil {
		if err := s.routeCache.SetRoute(ctx, route); err != nil {
			log.Printf("route cache write failed for %s: %v", routeID, err)
		}
	}

	return route, nil
}
