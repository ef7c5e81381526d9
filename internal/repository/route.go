package repository

import (
	"context"

	"carpool/internal/domain"
)

// RouteRepository defines the persistence operations for fixed routes.
type RouteRepository interface {
	// Create persists a new fixed route.
	Create(ctx context.Context, route *domain.FixedRoute) error

	// GetByID retrieves a fixed route by ID.
	GetByID(ctx context.Context, id string) (*domain.FixedRoute, error)

	// GetAll retrieves all fixed routes.
	GetAll(ctx context.Context) ([]*domain.FixedRoute, error)
}
