package postgres

import (
	"context"
	"database/sql"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RouteRepository is a PostgreSQL implementation of repository.RouteRepository.
type RouteRepository struct {
	q Querier
}

// NewRouteRepository creates a new PostgreSQL route repository.
func NewRouteRepository(db *sql.DB) *RouteRepository {
	return &RouteRepository{q: db}
}

const routeColumns = `id, name, start_location, destination, distance_km, estimated_duration_min,
	market_price, our_price, currency`

// Create persists a new fixed route.
func (r *RouteRepository) Create(ctx context.Context, route *domain.FixedRoute) error {
	query := `
		INSERT INTO fixed_routes (` + routeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		route.ID,
		route.Name,
		route.StartLocation,
		route.Destination,
		route.DistanceKm,
		route.EstimatedDurationMin,
		nullFloat(route.MarketPrice),
		nullFloat(route.OurPrice),
		route.Currency,
	)

	return translateError(err)
}

// GetByID retrieves a fixed route by ID.
func (r *RouteRepository) GetByID(ctx context.Context, id string) (*domain.FixedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM fixed_routes WHERE id = $1`

	route, err := scanRoute(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return route, nil
}

// GetAll retrieves all fixed routes.
func (r *RouteRepository) GetAll(ctx context.Context) ([]*domain.FixedRoute, error) {
	query := `SELECT ` + routeColumns + ` FROM fixed_routes ORDER BY name`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routes []*domain.FixedRoute
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}

	return routes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoute(row rowScanner) (*domain.FixedRoute, error) {
	var route domain.FixedRoute
	var marketPrice, ourPrice sql.NullFloat64

	err := row.Scan(
		&route.ID,
		&route.Name,
		&route.StartLocation,
		&route.Destination,
		&route.DistanceKm,
		&route.EstimatedDurationMin,
		&marketPrice,
		&ourPrice,
		&route.Currency,
	)
	if err != nil {
		return nil, err
	}

	route.MarketPrice = marketPrice.Float64
	route.OurPrice = ourPrice.Float64

	return &route, nil
}
