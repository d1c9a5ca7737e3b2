package storage

import (
	"context"

	"github.com/chris/escrow-transfers/pkg/models"
)

// AccountReader defines the read side of the account store.
type AccountReader interface {
	// GetAccount retrieves an account by its ID.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
}

// AccountWriter creates accounts. Balances are never written through it after creation.
type AccountWriter interface {
	// CreateAccount creates a new account with its opening balance.
	CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error)
}

// AccountStore combines the reader and writer interfaces.
type AccountStore interface {
	AccountReader
	AccountWriter
}
