package postgres

import (
	"context"
	"database/sql"
)

// ProcedureVerifier verifies transaction hashes through the ledger-aware
// verify_and_confirm_payment stored procedure.
type ProcedureVerifier struct {
	q Querier
}

// NewProcedureVerifier creates a verifier backed by the database procedure.
func NewProcedureVerifier(db *sql.DB) *ProcedureVerifier {
	return &ProcedureVerifier{q: db}
}

// Verify reports whether txHash pays the expected amount, currency and recipient of the payment.
func (v *ProcedureVerifier) Verify(ctx context.Context, paymentID, txHash string) (bool, error) {
	var ok sql.NullBool
	if err := v.q.QueryRowContext(ctx, `SELECT verify_and_confirm_payment($1, $2)`, paymentID, txHash).Scan(&ok); err != nil {
		return false, err
	}
	return ok.Valid && ok.Bool, nil
}
