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

// VehicleService manages vehicles offered for shared rides.
type VehicleService struct {
	vehicleRepo repository.VehicleRepository
}

// NewVehicleService creates a new VehicleService.
func NewVehicleService(vehicleRepo repository.VehicleRepository) *VehicleService {
	return &VehicleService{vehicleRepo: vehicleRepo}
}

// VehicleRequest contains the editable fields of a vehicle.
type VehicleRequest struct {
	DriverID           string
	LicensePlate       string
	MaxPassengers      int
	TrunkLengthCm      float64
	TrunkWidthCm       float64
	TrunkHeightCm      float64
	DiscountPercentage *float64
}

func (r VehicleRequest) validate() error {
	if strings.TrimSpace(r.DriverID) == "" {
		return fmt.Errorf("%w: driver is required", ErrInvalidVehicle)
	}
	if strings.TrimSpace(r.LicensePlate) == "" {
		return fmt.Errorf("%w: license plate is required", ErrInvalidVehicle)
	}
	if r.MaxPassengers < 1 {
		return fmt.Errorf("%w: max passengers must be at least 1", ErrInvalidVehicle)
	}
	if r.TrunkLengthCm < 0 || r.TrunkWidthCm < 0 || r.TrunkHeightCm < 0 {
		return fmt.Errorf("%w: trunk dimensions must not be negative", ErrInvalidVehicle)
	}
	if d := r.DiscountPercentage; d != nil && (*d < 0 || *d > 100) {
		return fmt.Errorf("%w: discount percentage must be within 0..100", ErrInvalidVehicle)
	}
	return nil
}

// Register adds a new active vehicle.
func (s *VehicleService) Register(ctx context.Context, req VehicleRequest) (*domain.Vehicle, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	vehicle := &domain.Vehicle{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	apply(vehicle, req)

	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, err
	}

	return vehicle, nil
}

// Update replaces the editable fields of a vehicle.
func (s *VehicleService) Update(ctx context.Context, id string, req VehicleRequest) (*domain.Vehicle, error) {
	if id == "" {
		return nil, ErrInvalidVehicleID
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	apply(vehicle, req)

	if err := s.vehicleRepo.Update(ctx, vehicle); err != nil {
		return nil, err
	}

	return vehicle, nil
}

// Get retrieves a vehicle by ID.
func (s *VehicleService) Get(ctx context.Context, id string) (*domain.Vehicle, error) {
	if id == "" {
		return nil, ErrInvalidVehicleID
	}
	return s.vehicleRepo.GetByID(ctx, id)
}

// ListActive lists active vehicles, optionally for one driver.
func (s *VehicleService) ListActive(ctx context.Context, driverID string) ([]*domain.Vehicle, error) {
	return s.vehicleRepo.ListActive(ctx, driverID)
}

// Deactivate soft-deletes a vehicle. Groups that reference it keep it.
func (s *VehicleService) Deactivate(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidVehicleID
	}
	return s.vehicleRepo.Deactivate(ctx, id)
}

func apply(v *domain.Vehicle, req VehicleRequest) {
	v.DriverID = strings.TrimSpace(req.DriverID)
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(req.LicensePlate))
	v.MaxPassengers = req.MaxPassengers
	v.TrunkLengthCm = req.TrunkLengthCm
	v.TrunkWidthCm = req.TrunkWidthCm
	v.TrunkHeightCm = req.TrunkHeightCm
	v.DiscountPercentage = req.DiscountPercentage
}
