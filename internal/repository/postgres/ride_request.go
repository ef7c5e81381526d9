package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// RideRequestRepository is a PostgreSQL implementation of repository.RideRequestRepository.
type RideRequestRepository struct {
	q Querier
}

// NewRideRequestRepository creates a new PostgreSQL ride request repository.
func NewRideRequestRepository(db *sql.DB) *RideRequestRepository {
	return &RideRequestRepository{q: db}
}

// NewRideRequestRepositoryWithTx creates a ride request repository using a transaction.
func NewRideRequestRepositoryWithTx(tx *sql.Tx) *RideRequestRepository {
	return &RideRequestRepository{q: tx}
}

const rideRequestColumns = `id, requester_name, start_location, end_location, requested_time,
	passenger_count, luggage, status, payment_required, payment_amount, payment_currency,
	payment_status, tx_hash, sender_wallet, fixed_route_id, vehicle_id, ride_group_id,
	created_at, updated_at`

// Create persists a new ride request.
func (r *RideRequestRepository) Create(ctx context.Context, req *domain.RideRequest) error {
	luggage, err := encodeLuggage(req.Luggage)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ride_requests (` + rideRequestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err = r.q.ExecContext(ctx, query,
		req.ID,
		req.RequesterName,
		req.StartLocation,
		req.EndLocation,
		req.RequestedTime,
		req.Passengers(),
		luggage,
		req.Status,
		req.PaymentRequired,
		req.PaymentAmount,
		req.PaymentCurrency,
		req.PaymentStatus,
		req.TxHash,
		req.SenderWallet,
		nullString(req.FixedRouteID),
		nullString(req.VehicleID),
		nullString(req.RideGroupID),
		req.CreatedAt,
		req.UpdatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a ride request by ID.
func (r *RideRequestRepository) GetByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	query := `SELECT ` + rideRequestColumns + ` FROM ride_requests WHERE id = $1`

	req, err := scanRideRequest(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return req, nil
}

// List retrieves ride requests matching the filter, newest first.
func (r *RideRequestRepository) List(ctx context.Context, filter repository.RideRequestFilter) ([]*domain.RideRequest, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + rideRequestColumns + ` FROM ride_requests
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR fixed_route_id::text = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, string(filter.Status), filter.FixedRouteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRideRequests(rows)
}

// GetByIDs retrieves the given ride requests. Missing IDs are skipped.
func (r *RideRequestRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.RideRequest, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + rideRequestColumns + ` FROM ride_requests WHERE id::text = ANY($1)`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRideRequests(rows)
}

// UpdateStatus sets the lifecycle status of a ride request.
func (r *RideRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RideRequestStatus) error {
	query := `UPDATE ride_requests SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.q.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// UpdatePayment sets the payment status and, when non-empty, the tx hash.
func (r *RideRequestRepository) UpdatePayment(ctx context.Context, id string, status domain.RequestPaymentStatus, txHash string) error {
	query := `
		UPDATE ride_requests
		SET payment_status = $1,
			tx_hash = CASE WHEN $2 = '' THEN tx_hash ELSE $2 END,
			updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.q.ExecContext(ctx, query, status, txHash, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// ConfirmPaymentFrom confirms payment with the tx hash when the current
// payment status is one of from. Returns false when nothing changed.
func (r *RideRequestRepository) ConfirmPaymentFrom(ctx context.Context, id, txHash string, from []domain.RequestPaymentStatus) (bool, error) {
	allowed := make([]string, len(from))
	for i, status := range from {
		allowed[i] = string(status)
	}

	query := `
		UPDATE ride_requests
		SET payment_status = 'confirmed',
			tx_hash = CASE WHEN $1 = '' THEN tx_hash ELSE $1 END,
			updated_at = NOW()
		WHERE id = $2 AND payment_status = ANY($3)
	`

	result, err := r.q.ExecContext(ctx, query, txHash, id, pq.Array(allowed))
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

// SetSenderWallet records the passenger's paying wallet.
func (r *RideRequestRepository) SetSenderWallet(ctx context.Context, id, wallet string) error {
	query := `
		UPDATE ride_requests
		SET sender_wallet = $1,
			payment_status = CASE WHEN payment_status = 'unpaid' THEN 'pending' ELSE payment_status END,
			updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.ExecContext(ctx, query, wallet, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// SetPaymentTerms stores whether payment is required and the amount owed.
func (r *RideRequestRepository) SetPaymentTerms(ctx context.Context, id string, required bool, amount float64, currency string) error {
	query := `
		UPDATE ride_requests
		SET payment_required = $1, payment_amount = $2, payment_currency = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.q.ExecContext(ctx, query, required, amount, currency, id)
	if err != nil {
		return err
	}

	return expectOneRow(result)
}

// Assign links the request to a group and vehicle. Nil values clear the link.
// Linking a request that already points at another group fails with
// repository.ErrDuplicate.
func (r *RideRequestRepository) Assign(ctx context.Context, id string, groupID, vehicleID *string) error {
	query := `
		UPDATE ride_requests
		SET ride_group_id = $1, vehicle_id = $2, updated_at = NOW()
		WHERE id = $3
		  AND ($1::uuid IS NULL OR ride_group_id IS NULL OR ride_group_id = $1::uuid)
	`

	result, err := r.q.ExecContext(ctx, query, nullString(groupID), nullString(vehicleID), id)
	if err != nil {
		return err
	}

	if groupID == nil {
		return expectOneRow(result)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 1 {
		return nil
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ride_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrDuplicate
}

func collectRideRequests(rows *sql.Rows) ([]*domain.RideRequest, error) {
	var requests []*domain.RideRequest
	for rows.Next() {
		req, err := scanRideRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}

	return requests, rows.Err()
}

func scanRideRequest(row rowScanner) (*domain.RideRequest, error) {
	var req domain.RideRequest
	var luggage string
	var routeID, vehicleID, groupID sql.NullString

	err := row.Scan(
		&req.ID,
		&req.RequesterName,
		&req.StartLocation,
		&req.EndLocation,
		&req.RequestedTime,
		&req.PassengerCount,
		&luggage,
		&req.Status,
		&req.PaymentRequired,
		&req.PaymentAmount,
		&req.PaymentCurrency,
		&req.PaymentStatus,
		&req.TxHash,
		&req.SenderWallet,
		&routeID,
		&vehicleID,
		&groupID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Luggage, err = decodeLuggage(luggage)
	if err != nil {
		return nil, fmt.Errorf("ride request %s: %w", req.ID, err)
	}

	req.FixedRouteID = stringPtr(routeID)
	req.VehicleID = stringPtr(vehicleID)
	req.RideGroupID = stringPtr(groupID)

	return &req, nil
}

// encodeLuggage serializes the manifest into the text column.
func encodeLuggage(items []domain.LuggageItem) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode luggage: %w", err)
	}
	return string(data), nil
}

// decodeLuggage parses the text column back into the manifest.
func decodeLuggage(raw string) ([]domain.LuggageItem, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var items []domain.LuggageItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode luggage: %w", err)
	}
	return items, nil
}
