package redis

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// RouteCache defines the interface for fixed route caching.
type RouteCache interface {
	GetRoute(ctx context.Context, routeID string) (*domain.FixedRoute, error)
	SetRoute(ctx context.Context, route *domain.FixedRoute) error
	InvalidateRoute(ctx context.Context, routeID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDetectionLock(ctx context.Context, rideRequestID string, ttl time.Duration) (string, bool, error)
	ReleaseDetectionLock(ctx context.Context, rideRequestID, token string) error
}

// Ensure concrete types implement interfaces.
var (
	_ RouteCache         = (*CacheStore)(nil)
	_ LockStoreInterface = (*LockStore)(nil)
)
