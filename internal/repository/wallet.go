package repository

import (
	"context"

	"carpool/internal/domain"
)

// WalletRepository defines read access to receiving wallets.
type WalletRepository interface {
	// ListActiveByCurrency retrieves active receiving wallets for a currency.
	ListActiveByCurrency(ctx context.Context, currency string) ([]*domain.WalletAddress, error)
}
