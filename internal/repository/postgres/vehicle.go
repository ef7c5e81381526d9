package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// VehicleRepository is a PostgreSQL implementation of repository.VehicleRepository.
type VehicleRepository struct {
	q Querier
}

// NewVehicleRepository creates a new PostgreSQL vehicle repository.
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{q: db}
}

const vehicleColumns = `id, driver_id, license_plate, max_passengers, trunk_length, trunk_width,
	trunk_height, discount_percentage, is_active, created_at`

// Create adds a new vehicle.
func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `
		INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		v.ID,
		v.DriverID,
		v.LicensePlate,
		v.MaxPassengers,
		v.TrunkLengthCm,
		v.TrunkWidthCm,
		v.TrunkHeightCm,
		discountArg(v.DiscountPercentage),
		v.IsActive,
		v.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a vehicle by ID, including inactive ones.
func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`

	v, err := scanVehicle(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return v, nil
}

// ListActive retrieves all active vehicles, optionally for one driver.
func (r *VehicleRepository) ListActive(ctx context.Context, driverID string) ([]*domain.Vehicle, error) {
	query := `
		SELECT ` + vehicleColumns + ` FROM vehicles
		WHERE is_active AND ($1 = '' OR driver_id = $1)
		ORDER BY created_at
	`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// Update updates an existing vehicle.
func (r *VehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `
		UPDATE vehicles
		SET license_plate = $1, max_passengers = $2, trunk_length = $3, trunk_width = $4,
			trunk_height = $5, discount_percentage = $6, is_active = $7
		WHERE id = $8
	`

	result, err := r.q.ExecContext(ctx, query,
		v.LicensePlate,
		v.MaxPassengers,
		v.TrunkLengthCm,
		v.TrunkWidthCm,
		v.TrunkHeightCm,
		discountArg(v.DiscountPercentage),
		v.IsActive,
		v.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Deactivate soft-deletes a vehicle. Ride groups keep referencing it.
func (r *VehicleRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE vehicles SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

func scanVehicle(row rowScanner) (*domain.Vehicle, error) {
	var v domain.Vehicle
	var discount sql.NullFloat64

	err := row.Scan(
		&v.ID,
		&v.DriverID,
		&v.LicensePlate,
		&v.MaxPassengers,
		&v.TrunkLengthCm,
		&v.TrunkWidthCm,
		&v.TrunkHeightCm,
		&discount,
		&v.IsActive,
		&v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if discount.Valid {
		d := discount.Float64
		v.DiscountPercentage = &d
	}

	return &v, nil
}

func discountArg(d *float64) sql.NullFloat64 {
	if d == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *d, Valid: true}
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
