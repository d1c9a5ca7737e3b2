package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/jackc/pgx/v5"
)

const (
	keyColumns             = "key, owner, status, transaction_id, created_at, finished_at"
	oneActiveKeyConstraint = "idempotency_keys_one_active_per_owner"
)

func scanKey(row pgx.Row) (*models.IdempotencyKey, error) {
	var k models.IdempotencyKey
	var txID *string
	if err := row.Scan(&k.Key, &k.Owner, &k.Status, &txID, &k.CreatedAt, &k.FinishedAt); err != nil {
		return nil, err
	}
	if txID != nil {
		k.TransactionId = *txID
	}
	return &k, nil
}

func (s *Store) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	k, err := scanKey(s.Db.QueryRow(ctx, "SELECT "+keyColumns+" FROM idempotency_keys WHERE key = $1", key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("idempotency key %s: %w", key, storage.ErrIdempotencyKeyNotFound)
		}
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}
	return k, nil
}

// FindIdempotencyKey returns the most recent key of the given status held by owner.
func (s *Store) FindIdempotencyKey(ctx context.Context, owner string, status models.KeyStatus) (*models.IdempotencyKey, error) {
	k, err := scanKey(s.Db.QueryRow(ctx,
		"SELECT "+keyColumns+" FROM idempotency_keys WHERE owner = $1 AND status = $2 ORDER BY created_at DESC LIMIT 1",
		owner, string(status),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s key for %s: %w", status, owner, storage.ErrIdempotencyKeyNotFound)
		}
		return nil, fmt.Errorf("failed to find idempotency key: %w", err)
	}
	return k, nil
}

func (s *Store) CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (*models.IdempotencyKey, error) {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	key.Status = models.KeyActive

	_, err := s.Db.Exec(ctx,
		"INSERT INTO idempotency_keys (key, owner, status, created_at) VALUES ($1, $2, $3, $4)",
		key.Key, key.Owner, string(key.Status), key.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, oneActiveKeyConstraint) {
			return nil, fmt.Errorf("owner %s: %w", key.Owner, storage.ErrActiveKeyExists)
		}
		return nil, fmt.Errorf("failed to create idempotency key: %w", err)
	}
	return key, nil
}

func (s *Store) ListStaleIdempotencyKeys(ctx context.Context, maxAge time.Duration) ([]models.IdempotencyKey, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+keyColumns+" FROM idempotency_keys WHERE status = 'active' AND created_at < $1 ORDER BY created_at",
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query for stale idempotency keys: %w", err)
	}
	defer rows.Close()

	var keys []models.IdempotencyKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idempotency key: %w", err)
		}
		keys = append(keys, *k)
	}
	return keys, rows.Err()
}
