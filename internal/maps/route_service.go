package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNoRoute is returned when the directions API finds no drivable route.
var ErrNoRoute = errors.New("no route found")

// Estimate is the driving distance and duration between two places.
type Estimate struct {
	DistanceKm      float64
	DurationMinutes float64
}

// RouteService handles interactions with Google Maps API.
type RouteService struct {
	client   *maps.Client
	language string
	region   string
}

// NewRouteService creates a new RouteService with the given API Key.
func NewRouteService(apiKey, language, region string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client, language: language, region: region}, nil
}

// Estimate returns the driving distance and duration from origin to destination.
func (s *RouteService) Estimate(ctx context.Context, origin, destination string) (*Estimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
		Language:    s.language,
		Region:      s.region,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	var meters int
	var est Estimate
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
		est.DurationMinutes += leg.Duration.Minutes()
	}
	est.DistanceKm = float64(meters) / 1000

	return &est, nil
}
