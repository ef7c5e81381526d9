package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

const routeCachePrefix = "cache:route:"

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client   *redis.Client
	routeTTL time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client, routeTTL time.Duration) *CacheStore {
	return &CacheStore{client: client, routeTTL: routeTTL}
}

// CachedRoute represents a cached fixed route.
type CachedRoute struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	StartLocation        string  `json:"start_location"`
	Destination          string  `json:"destination"`
	DistanceKm           float64 `json:"distance_km"`
	EstimatedDurationMin float64 `json:"estimated_duration_min"`
	MarketPrice          float64 `json:"market_price"`
	OurPrice             float64 `json:"our_price"`
	Currency             string  `json:"currency"`
}

// GetRoute retrieves a fixed route from cache. Returns nil on a cache miss.
func (s *CacheStore) GetRoute(ctx context.Context, routeID string) (*domain.FixedRoute, error) {
	data, err := s.client.Get(ctx, routeCachePrefix+routeID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedRoute
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	return &domain.FixedRoute{
		ID:                   cached.ID,
		Name:                 cached.Name,
		StartLocation:        cached.StartLocation,
		Destination:          cached.Destination,
		DistanceKm:           cached.DistanceKm,
		EstimatedDurationMin: cached.EstimatedDurationMin,
		MarketPrice:          cached.MarketPrice,
		OurPrice:             cached.OurPrice,
		Currency:             cached.Currency,
	}, nil
}

// SetRoute stores a fixed route in cache.
func (s *CacheStore) SetRoute(ctx context.Context, route *domain.FixedRoute) error {
	data, err := json.Marshal(CachedRoute{
		ID:                   route.ID,
		Name:                 route.Name,
		StartLocation:        route.StartLocation,
		Destination:          route.Destination,
		DistanceKm:           route.DistanceKm,
		EstimatedDurationMin: route.EstimatedDurationMin,
		MarketPrice:          route.MarketPrice,
		OurPrice:             route.OurPrice,
		Currency:             route.Currency,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, routeCachePrefix+route.ID, data, s.routeTTL).Err()
}

// InvalidateRoute removes a fixed route from cache.
func (s *CacheStore) InvalidateRoute(ctx context.Context, routeID string) error {
	return s.client.Del(ctx, routeCachePrefix+routeID).Err()
}
