// Package ledger creates transactions and moves the payer's funds into escrow.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/chris/escrow-transfers/pkg/metrics"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/google/uuid"
)

// DefaultCreateTimeout bounds a creation when the caller configures none.
const DefaultCreateTimeout = 5 * time.Second

// CreateRequest carries everything needed to create one transaction.
type CreateRequest struct {
	PayerID        string
	ReceiverID     string
	Amount         models.Amount
	IdempotencyKey string
	// Requester is the authenticated caller. Only the key's owner may spend it.
	Requester string
}

// KeyLookup resolves an idempotency key to its record, reporting an unknown key as NotFound.
type KeyLookup interface {
	Lookup(ctx context.Context, key string) (*models.IdempotencyKey, error)
}

type Ledger struct {
	store   storage.ApiStore
	keys    KeyLookup
	timeout time.Duration
	newID   func() string
}

func New(store storage.ApiStore, keys KeyLookup, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = DefaultCreateTimeout
	}
	return &Ledger{store: store, keys: keys, timeout: timeout, newID: uuid.NewString}
}

// CreateTransaction validates req against the key and both accounts, then in one atomic store
// operation consumes the key, debits the payer and stores the pending transaction.
// On any error nothing has been written and the key is still active.
func (l *Ledger) CreateTransaction(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	tx, err := l.createTransaction(ctx, req)
	if err != nil {
		metrics.TransactionsCreated.WithLabelValues(apperrors.KindOf(err).String()).Inc()
		return nil, err
	}
	metrics.TransactionsCreated.WithLabelValues("created").Inc()
	return tx, nil
}

func (l *Ledger) createTransaction(ctx context.Context, req CreateRequest) (*models.Transaction, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	key, err := l.keys.Lookup(ctx, req.IdempotencyKey)
	if err != nil {
		if apperrors.Is(err, apperrors.NotFound) {
			return nil, apperrors.Wrap(apperrors.PreconditionFailed, err, "unknown idempotency key")
		}
		return nil, internal(err, "failed to read idempotency key")
	}
	if key.Owner != req.Requester {
		return nil, apperrors.New(apperrors.PreconditionFailed, "idempotency key does not belong to requester")
	}
	if key.Status != models.KeyActive {
		return nil, apperrors.New(apperrors.Conflict, "idempotency key %s has already been used", key.Key)
	}

	payer, err := l.store.GetAccount(ctx, req.PayerID)
	if err != nil {
		return nil, accountError(err, "payer", req.PayerID)
	}
	if _, err := l.store.GetAccount(ctx, req.ReceiverID); err != nil {
		return nil, accountError(err, "receiver", req.ReceiverID)
	}
	if payer.Balance.LessThan(req.Amount) {
		return nil, apperrors.New(apperrors.PreconditionFailed, "insufficient funds")
	}

	tx := &models.Transaction{
		Id:             l.newID(),
		PayerId:        req.PayerID,
		ReceiverId:     req.ReceiverID,
		Amount:         req.Amount,
		IdempotencyKey: req.IdempotencyKey,
	}

	created, err := l.store.CreateTransaction(ctx, tx, req.Requester)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrIdempotencyKeyConsumed):
			return nil, apperrors.Wrap(apperrors.Conflict, err, "idempotency key %s has already been used", req.IdempotencyKey)
		case errors.Is(err, storage.ErrInsufficientFunds):
			return nil, apperrors.Wrap(apperrors.PreconditionFailed, err, "insufficient funds")
		case errors.Is(err, storage.ErrAccountNotFound):
			return nil, apperrors.Wrap(apperrors.NotFound, err, "account not found")
		}
		return nil, internal(err, "failed to create transaction")
	}

	slog.Info("transaction created",
		"transaction_id", created.Id,
		"payer_id", created.PayerId,
		"receiver_id", created.ReceiverId,
		"amount", created.Amount.String(),
	)
	return created, nil
}

func validate(req CreateRequest) error {
	switch {
	case strings.TrimSpace(req.PayerID) == "":
		return apperrors.New(apperrors.InvalidInput, "payer_id is required")
	case strings.TrimSpace(req.ReceiverID) == "":
		return apperrors.New(apperrors.InvalidInput, "receiver_id is required")
	case strings.TrimSpace(req.IdempotencyKey) == "":
		return apperrors.New(apperrors.InvalidInput, "idempotency key is required")
	case strings.TrimSpace(req.Requester) == "":
		return apperrors.New(apperrors.InvalidInput, "requester is required")
	case req.Amount.Sign() <= 0:
		return apperrors.New(apperrors.InvalidInput, "amount must be positive")
	case req.PayerID == req.ReceiverID:
		return apperrors.New(apperrors.InvalidInput, "payer and receiver must differ")
	}
	return nil
}

func accountError(err error, role, id string) error {
	if storage.IsNotFound(err) {
		return apperrors.Wrap(apperrors.NotFound, err, "%s %s not found", role, id)
	}
	return internal(err, "failed to read %s account", role)
}

// internal marks err retryable. Deadline expiry lands here as well.
func internal(err error, format string, args ...any) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Retry(err, "timed out: "+format, args...)
	}
	return apperrors.Retry(err, format, args...)
}

// FindByID retrieves a transaction.
func (l *Ledger) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := l.store.GetTransaction(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.NotFound, err, "transaction %s not found", id)
		}
		return nil, internal(err, "failed to read transaction")
	}
	return tx, nil
}

// ListByUser returns every transaction userID sent or received, newest first.
func (l *Ledger) ListByUser(ctx context.Context, userID string) ([]models.TransactionSummary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.New(apperrors.InvalidInput, "user id is required")
	}

	txs, err := l.store.ListTransactionsByUserID(ctx, userID)
	if err != nil {
		return nil, internal(err, "failed to list transactions")
	}

	summaries := make([]models.TransactionSummary, 0, len(txs))
	for _, tx := range txs {
		s := models.TransactionSummary{
			TransactionId: tx.Id,
			Direction:     models.Sent,
			Counterparty:  tx.ReceiverId,
			Amount:        tx.Amount,
			Status:        tx.Status,
			CreatedAt:     tx.CreatedAt,
		}
		if tx.ReceiverId == userID {
			s.Direction = models.Received
			s.Counterparty = tx.PayerId
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
