package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	db *sql.DB
	q  Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db, q: db}
}

const paymentColumns = `id, ride_request_id, amount, currency, wallet_address, payment_method,
	tx_hash, status, confirmed_at, created_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.RideRequestID,
		payment.Amount,
		payment.Currency,
		payment.WalletAddress,
		payment.PaymentMethod,
		payment.TxHash,
		payment.Status,
		payment.ConfirmedAt,
		payment.CreatedAt,
	)

	return translateError(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// ListByRideRequest retrieves all payment attempts for a ride request, newest first.
func (r *PaymentRepository) ListByRideRequest(ctx context.Context, rideRequestID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_request_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, rideRequestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// Confirm marks a payment confirmed and propagates the status to its ride request.
func (r *PaymentRepository) Confirm(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error) {
	var payment *domain.Payment

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE payments
			SET status = 'confirmed',
				confirmed_at = COALESCE(confirmed_at, $1),
				tx_hash = CASE WHEN $2 = '' THEN tx_hash ELSE $2 END
			WHERE id = $3
			RETURNING ` + paymentColumns

		p, err := scanPayment(tx.QueryRowContext(ctx, query, at, txHash, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}
		payment = p

		return NewRideRequestRepositoryWithTx(tx).UpdatePayment(ctx, p.RideRequestID, domain.RequestPaymentConfirmed, p.TxHash)
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// ConfirmPending confirms a payment that is still pending. The ride request
// follows unless its payment was failed, in which case nothing changes.
func (r *PaymentRepository) ConfirmPending(ctx context.Context, id, txHash string, at time.Time) (*domain.Payment, error) {
	var payment *domain.Payment

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE payments
			SET status = 'confirmed',
				confirmed_at = COALESCE(confirmed_at, $1),
				tx_hash = CASE WHEN $2 = '' THEN tx_hash ELSE $2 END
			WHERE id = $3 AND status = 'pending'
			RETURNING ` + paymentColumns

		p, err := scanPayment(tx.QueryRowContext(ctx, query, at, txHash, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return missingOrConflict(ctx, tx, id)
			}
			return err
		}
		payment = p

		open := append(domain.AutomaticSources(domain.RequestPaymentConfirmed), domain.RequestPaymentConfirmed)
		changed, err := NewRideRequestRepositoryWithTx(tx).ConfirmPaymentFrom(ctx, p.RideRequestID, p.TxHash, open)
		if err != nil {
			return err
		}
		if !changed {
			return repository.ErrStateConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payment, nil
}

// ConfirmDetected confirms a detected ledger payment on the ride request and
// its latest pending attempt.
func (r *PaymentRepository) ConfirmDetected(ctx context.Context, rideRequestID, txHash string, at time.Time) (*domain.Payment, bool, error) {
	var payment *domain.Payment
	changed := false

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ok, err := NewRideRequestRepositoryWithTx(tx).ConfirmPaymentFrom(ctx, rideRequestID, txHash,
			domain.AutomaticSources(domain.RequestPaymentConfirmed))
		if err != nil || !ok {
			return err
		}
		changed = true

		query := `
			UPDATE payments
			SET status = 'confirmed',
				confirmed_at = COALESCE(confirmed_at, $1),
				tx_hash = $2
			WHERE id = (
				SELECT id FROM payments
				WHERE ride_request_id = $3 AND status = 'pending'
				ORDER BY created_at DESC
				LIMIT 1
				FOR UPDATE
			)
			RETURNING ` + paymentColumns

		p, err := scanPayment(tx.QueryRowContext(ctx, query, at, txHash, rideRequestID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return payment, changed, nil
}

func missingOrConflict(ctx context.Context, tx *sql.Tx, id string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStateConflict
}

// UpdateStatus sets the status of a payment and mirrors it onto the owning ride request.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, txHash string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE payments
			SET status = $1,
				tx_hash = CASE WHEN $2 = '' THEN tx_hash ELSE $2 END,
				confirmed_at = CASE WHEN $1 = 'confirmed' THEN COALESCE(confirmed_at, NOW()) ELSE confirmed_at END
			WHERE id = $3
			RETURNING ride_request_id, tx_hash
		`

		var rideRequestID, storedHash string
		if err := tx.QueryRowContext(ctx, query, status, txHash, id).Scan(&rideRequestID, &storedHash); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			return err
		}

		requestStatus, ok := domain.RequestStatusFor(status)
		if !ok {
			return nil
		}
		return NewRideRequestRepositoryWithTx(tx).UpdatePayment(ctx, rideRequestID, requestStatus, storedHash)
	})
}

// ExpirePendingBefore marks pending payments created before cutoff as expired.
func (r *PaymentRepository) ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`UPDATE payments SET status = 'expired' WHERE status = 'pending' AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var confirmedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.RideRequestID,
		&p.Amount,
		&p.Currency,
		&p.WalletAddress,
		&p.PaymentMethod,
		&p.TxHash,
		&p.Status,
		&confirmedAt,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if confirmedAt.Valid {
		t := confirmedAt.Time
		p.ConfirmedAt = &t
	}

	return &p, nil
}
