package postgres

import (
	"context"
	"database/sql"

	"carpool/internal/domain"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// ListActiveByCurrency retrieves active receiving wallets for a currency.
func (r *WalletRepository) ListActiveByCurrency(ctx context.Context, currency string) ([]*domain.WalletAddress, error) {
	query := `
		SELECT id, chain, currency, address, token_contract, token_decimals, label, is_active
		FROM wallet_addresses
		WHERE is_active AND UPPER(currency) = UPPER($1)
		ORDER BY chain, id
	`

	rows, err := r.q.QueryContext(ctx, query, currency)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wallets []*domain.WalletAddress
	for rows.Next() {
		var w domain.WalletAddress
		if err := rows.Scan(&w.ID, &w.Chain, &w.Currency, &w.Address, &w.TokenContract, &w.TokenDecimals, &w.Label, &w.IsActive); err != nil {
			return nil, err
		}
		wallets = append(wallets, &w)
	}

	return wallets, rows.Err()
}
