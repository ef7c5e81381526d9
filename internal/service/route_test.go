package service

import (
	"context"
	"errors"
	"testing"

	"carpool/internal/maps"
	"carpool/internal/tests"
)

func TestCreateRoute_FillsDistanceFromEstimator(t *testing.T) {
	t.Parallel()

	estimator := &tests.MockEstimator{Result: &maps.Estimate{DistanceKm: 23.46, DurationMinutes: 31.6}}
	svc := NewRouteService(tests.NewMockRouteRepository(), estimator)

	route, err := svc.Create(context.Background(), CreateRouteRequest{
		Name:          "Airport - Downtown",
		StartLocation: "Airport",
		Destination:   "Downtown",
		MarketPrice:   80,
		OurPrice:      60,
		Currency:      "usdt",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.DistanceKm != 23.5 || route.EstimatedDurationMin != 32 {
		t.Errorf("unexpected estimate %v km / %v min", route.DistanceKm, route.EstimatedDurationMin)
	}
	if route.Currency != "USDT" {
		t.Errorf("expected currency upper-cased, got %s", route.Currency)
	}
}

func TestCreateRoute_ExplicitDistanceSkipsEstimator(t *testing.T) {
	t.Parallel()

	estimator := &tests.MockEstimator{Error: errors.New("should not be called")}
	svc := NewRouteService(tests.NewMockRouteRepository(), estimator)

	_, err := svc.Create(context.Background(), CreateRouteRequest{
		Name:                 "Ring",
		StartLocation:        "A",
		Destination:          "B",
		DistanceKm:           10,
		EstimatedDurationMin: 15,
		OurPrice:             12,
		Currency:             "USDT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimator.CallCount != 0 {
		t.Error("estimator should not be called")
	}
}

func TestCreateRoute_Validation(t *testing.T) {
	t.Parallel()

	svc := NewRouteService(tests.NewMockRouteRepository(), nil)

	if _, err := svc.Create(context.Background(), CreateRouteRequest{Name: "x", StartLocation: "A", Destination: "B", Currency: "USDT"}); !errors.Is(err, ErrInvalidRoute) {
		t.Errorf("expected ErrInvalidRoute for missing prices, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRouteRequest{Name: "x", StartLocation: "A", Destination: "B", OurPrice: 1}); !errors.Is(err, ErrInvalidCurrency) {
		t.Errorf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateRouteRequest{Name: "x", StartLocation: "A", Destination: "B", OurPrice: 1, Currency: "USDT"}); !errors.Is(err, ErrRouteEstimatorUnavailable) {
		t.Errorf("expected ErrRouteEstimatorUnavailable, got %v", err)
	}
}

func TestCreateRoute_EstimatorNoRoute(t *testing.T) {
	t.Parallel()

	svc := NewRouteService(tests.NewMockRouteRepository(), &tests.MockEstimator{Error: maps.ErrNoRoute})

	_, err := svc.Create(context.Background(), CreateRouteRequest{Name: "x", StartLocation: "A", Destination: "B", OurPrice: 1, Currency: "USDT"})
	if !errors.Is(err, maps.ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
}
