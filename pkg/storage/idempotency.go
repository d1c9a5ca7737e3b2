package storage

import (
	"context"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
)

// IdempotencyKeyStore persists idempotency keys. It never touches accounts or transactions;
// consuming a key happens inside TransactionManager.CreateTransaction.
type IdempotencyKeyStore interface {
	// GetIdempotencyKey retrieves a key by its value.
	GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error)

	// FindIdempotencyKey retrieves a key of the given status held by owner.
	FindIdempotencyKey(ctx context.Context, owner string, status models.KeyStatus) (*models.IdempotencyKey, error)

	// CreateIdempotencyKey stores a new active key. It returns ErrActiveKeyExists
	// when the owner already holds an active key.
	CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (*models.IdempotencyKey, error)

	// ListStaleIdempotencyKeys retrieves active keys created more than maxAge ago.
	ListStaleIdempotencyKeys(ctx context.Context, maxAge time.Duration) ([]models.IdempotencyKey, error)
}
