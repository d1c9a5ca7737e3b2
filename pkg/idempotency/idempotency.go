// Package idempotency issues the single-use keys that authorize transaction creation.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/google/uuid"
)

// A concurrent RequestKey can create a key and have it consumed between our two reads.
const maxAttempts = 3

type Manager struct {
	store  storage.IdempotencyKeyStore
	newKey func() string
}

func New(store storage.IdempotencyKeyStore) *Manager {
	return &Manager{store: store, newKey: uuid.NewString}
}

// RequestKey returns owner's active key, creating one if none exists. Repeated calls return
// the same key until it is consumed by a transaction.
func (m *Manager) RequestKey(ctx context.Context, owner string) (*models.IdempotencyKey, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, apperrors.New(apperrors.InvalidInput, "owner is required")
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		existing, err := m.LookupByOwner(ctx, owner, models.KeyActive)
		if err == nil {
			return existing, nil
		}
		if !apperrors.Is(err, apperrors.NotFound) {
			return nil, err
		}

		created, err := m.store.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: m.newKey(), Owner: owner})
		if err == nil {
			slog.Info("issued idempotency key", "owner", owner, "key", created.Key)
			return created, nil
		}
		if !errors.Is(err, storage.ErrActiveKeyExists) {
			return nil, apperrors.Retry(err, "failed to create idempotency key")
		}
		// Lost the race to a concurrent request; the next iteration returns its key.
	}

	return nil, apperrors.Retry(nil, "could not settle on an active key for %s", owner)
}

// Lookup returns the record for key. Transaction creation validates keys through it.
func (m *Manager) Lookup(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	k, err := m.store.GetIdempotencyKey(ctx, key)
	if err != nil {
		return nil, lookupError(err, "idempotency key %s", key)
	}
	return k, nil
}

func (m *Manager) LookupByOwner(ctx context.Context, owner string, status models.KeyStatus) (*models.IdempotencyKey, error) {
	k, err := m.store.FindIdempotencyKey(ctx, owner, status)
	if err != nil {
		return nil, lookupError(err, "%s key for %s", status, owner)
	}
	return k, nil
}

func lookupError(err error, format string, args ...any) error {
	if storage.IsNotFound(err) {
		return apperrors.Wrap(apperrors.NotFound, err, format, args...)
	}
	return apperrors.Retry(err, "failed to read "+format, args...)
}
