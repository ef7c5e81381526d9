package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// volumeTolerance absorbs float summation order differences in luggage totals.
const volumeTolerance = 1e-9

// RideGroupRepository is a PostgreSQL implementation of repository.RideGroupRepository.
// Membership changes always rewrite the group's totals from its member rows.
type RideGroupRepository struct {
	db *sql.DB
	q  Querier
}

// NewRideGroupRepository creates a new PostgreSQL ride group repository.
func NewRideGroupRepository(db *sql.DB) *RideGroupRepository {
	return &RideGroupRepository{db: db, q: db}
}

const rideGroupColumns = `id, vehicle_id, fixed_route_id, requested_time, total_passengers,
	total_luggage_volume, status, version, created_at, updated_at`

// CreateWithMember inserts a new group together with its first member.
func (r *RideGroupRepository) CreateWithMember(ctx context.Context, group *domain.RideGroup, member *domain.RideGroupMember) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO ride_groups (` + rideGroupColumns + `)
			VALUES ($1, $2, $3, $4, 0, 0, $5, 0, $6, $6)
		`
		_, err := tx.ExecContext(ctx, query,
			group.ID,
			group.VehicleID,
			group.FixedRouteID,
			group.RequestedTime,
			group.Status,
			group.CreatedAt,
		)
		if err != nil {
			return translateError(err)
		}

		if err := insertMember(ctx, tx, member); err != nil {
			return err
		}

		updated, err := rewriteTotals(ctx, tx, group.ID, 0, nil)
		if err != nil {
			return err
		}
		*group = *updated

		return assignRequest(ctx, tx, member.RideRequestID, &group.ID, &group.VehicleID)
	})
}

// GetByID retrieves a ride group by ID.
func (r *RideGroupRepository) GetByID(ctx context.Context, id string) (*domain.RideGroup, error) {
	query := `SELECT ` + rideGroupColumns + ` FROM ride_groups WHERE id = $1`

	group, err := scanRideGroup(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return group, nil
}

// FindPendingForRoute returns pending groups for a route within [from, to].
func (r *RideGroupRepository) FindPendingForRoute(ctx context.Context, routeID string, from, to time.Time) ([]*domain.RideGroup, error) {
	query := `
		SELECT ` + rideGroupColumns + ` FROM ride_groups
		WHERE fixed_route_id = $1
		  AND status = 'pending'
		  AND requested_time BETWEEN $2 AND $3
		ORDER BY requested_time, created_at
	`

	rows, err := r.q.QueryContext(ctx, query, routeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*domain.RideGroup
	for rows.Next() {
		group, err := scanRideGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, rows.Err()
}

// ExistsCommittedForVehicle reports whether the vehicle is committed within [from, to].
func (r *RideGroupRepository) ExistsCommittedForVehicle(ctx context.Context, vehicleID string, from, to time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM ride_groups
			WHERE vehicle_id = $1
			  AND status IN ('pending', 'confirmed')
			  AND requested_time BETWEEN $2 AND $3
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, query, vehicleID, from, to).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// ListMembers returns the members of a group ordered by join time.
func (r *RideGroupRepository) ListMembers(ctx context.Context, groupID string) ([]*domain.RideGroupMember, error) {
	query := `
		SELECT id, ride_group_id, ride_request_id, passenger_count, luggage_volume, joined_at
		FROM ride_group_members
		WHERE ride_group_id = $1
		ORDER BY joined_at
	`

	rows, err := r.q.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.RideGroupMember
	for rows.Next() {
		var m domain.RideGroupMember
		if err := rows.Scan(&m.ID, &m.RideGroupID, &m.RideRequestID, &m.PassengerCount, &m.LuggageVolume, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, &m)
	}

	return members, rows.Err()
}

// AddMember inserts a member and recomputes totals under a version check.
func (r *RideGroupRepository) AddMember(ctx context.Context, params repository.AddMemberParams) (*domain.RideGroup, error) {
	var group *domain.RideGroup

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertMember(ctx, tx, params.Member); err != nil {
			return err
		}

		limits := &capacityLimits{passengers: params.MaxPassengers, luggage: params.MaxLuggage}
		updated, err := rewriteTotals(ctx, tx, params.Member.RideGroupID, params.ExpectedVersion, limits)
		if err != nil {
			return err
		}
		group = updated

		return assignRequest(ctx, tx, params.Member.RideRequestID, &group.ID, &group.VehicleID)
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// RemoveMember deletes a request's membership and recomputes totals.
func (r *RideGroupRepository) RemoveMember(ctx context.Context, groupID, rideRequestID string) (*domain.RideGroup, error) {
	var group *domain.RideGroup

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM ride_group_members WHERE ride_group_id = $1 AND ride_request_id = $2`,
			groupID, rideRequestID,
		)
		if err != nil {
			return err
		}
		if err := expectOneRow(result); err != nil {
			return err
		}

		updated, err := rewriteTotals(ctx, tx, groupID, -1, nil)
		if err != nil {
			return err
		}
		group = updated

		return assignRequest(ctx, tx, rideRequestID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// RecomputeTotals rewrites the group's totals from its members.
func (r *RideGroupRepository) RecomputeTotals(ctx context.Context, groupID string) (*domain.RideGroup, error) {
	var group *domain.RideGroup

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		updated, err := rewriteTotals(ctx, tx, groupID, -1, nil)
		group = updated
		return err
	})
	if err != nil {
		return nil, err
	}

	return group, nil
}

// UpdateStatus sets the status of a group.
func (r *RideGroupRepository) UpdateStatus(ctx context.Context, id string, status domain.RideGroupStatus) error {
	query := `UPDATE ride_groups SET status = $1, version = version + 1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return translateError(err)
	}

	return expectOneRow(result)
}

type capacityLimits struct {
	passengers int
	luggage    float64
}

// rewriteTotals recomputes totals from member rows and writes them back.
// A non-negative expectedVersion turns the write into a compare-and-set, and
// limits, when set, reject totals above the vehicle's capacity.
func rewriteTotals(ctx context.Context, tx *sql.Tx, groupID string, expectedVersion int, limits *capacityLimits) (*domain.RideGroup, error) {
	var passengers int
	var volume float64

	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(passenger_count), 0), COALESCE(SUM(luggage_volume), 0)
		FROM ride_group_members WHERE ride_group_id = $1
	`, groupID).Scan(&passengers, &volume)
	if err != nil {
		return nil, err
	}

	maxPassengers, maxLuggage := -1, -1.0
	if limits != nil {
		maxPassengers, maxLuggage = limits.passengers, limits.luggage+volumeTolerance
	}

	query := `
		UPDATE ride_groups
		SET total_passengers = $1, total_luggage_volume = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3
		  AND ($4 < 0 OR version = $4)
		  AND ($5 < 0 OR $1 <= $5)
		  AND ($6 < 0 OR $2 <= $6)
		RETURNING ` + rideGroupColumns

	group, err := scanRideGroup(tx.QueryRowContext(ctx, query,
		passengers, volume, groupID, expectedVersion, maxPassengers, maxLuggage,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if expectedVersion >= 0 || limits != nil {
				return nil, repository.ErrVersionConflict
			}
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return group, nil
}

func insertMember(ctx context.Context, tx *sql.Tx, m *domain.RideGroupMember) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ride_group_members (id, ride_group_id, ride_request_id, passenger_count, luggage_volume, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		m.ID,
		m.RideGroupID,
		m.RideRequestID,
		m.PassengerCount,
		m.LuggageVolume,
		m.JoinedAt,
	)
	return translateError(err)
}

func assignRequest(ctx context.Context, tx *sql.Tx, rideRequestID string, groupID, vehicleID *string) error {
	return NewRideRequestRepositoryWithTx(tx).Assign(ctx, rideRequestID, groupID, vehicleID)
}

func scanRideGroup(row rowScanner) (*domain.RideGroup, error) {
	var g domain.RideGroup

	err := row.Scan(
		&g.ID,
		&g.VehicleID,
		&g.FixedRouteID,
		&g.RequestedTime,
		&g.TotalPassengers,
		&g.TotalLuggageVolume,
		&g.Status,
		&g.Version,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &g, nil
}
