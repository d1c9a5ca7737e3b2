package storage

import (
	"context"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
)

// TransactionReader defines the interface for reading transaction data.
type TransactionReader interface {
	// GetTransaction retrieves a transaction by its ID.
	GetTransaction(ctx context.Context, txID string) (*models.Transaction, error)

	// GetStuckTransactions retrieves transactions that are in a 'pending' state for longer than the specified duration.
	GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error)

	// ListTransactionsByUserID retrieves all transactions a user paid or received.
	ListTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
}

// TransactionManager defines the interface for creating transactions.
type TransactionManager interface {
	// CreateTransaction atomically consumes the idempotency key held by requester,
	// moves tx.Amount out of the payer's balance into escrow and stores tx as pending.
	// Either all of it happens or none of it does.
	CreateTransaction(ctx context.Context, tx *models.Transaction, requester string) (*models.Transaction, error)
}

// TransactionStore combines the reader and manager interfaces.
type TransactionStore interface {
	TransactionReader
	TransactionManager
}
