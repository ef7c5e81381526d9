package repository

import (
	"context"

	"carpool/internal/domain"
)

// VehicleRepository defines the persistence operations for vehicles.
type VehicleRepository interface {
	// Create adds a new vehicle.
	Create(ctx context.Context, vehicle *domain.Vehicle) error

	// GetByID retrieves a vehicle by ID, including inactive ones.
	GetByID(ctx context.Context, id string) (*domain.Vehicle, error)

	// ListActive retrieves all active vehicles, optionally for one driver.
	ListActive(ctx context.Context, driverID string) ([]*domain.Vehicle, error)

	// Update updates an existing vehicle.
	Update(ctx context.Context, vehicle *domain.Vehicle) error

	// Deactivate soft-deletes a vehicle.
	Deactivate(ctx context.Context, id string) error
}
