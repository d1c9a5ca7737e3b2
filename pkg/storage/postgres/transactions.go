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

func (s *Store) GetTransaction(ctx context.Context, txID string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.Db.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", txID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return tx, nil
}

func (s *Store) GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE status = 'pending' AND created_at < $1 ORDER BY created_at",
		time.Now().UTC().Add(-maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query for stuck transactions: %w", err)
	}
	return collectTransactions(rows)
}

func (s *Store) ListTransactionsByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	rows, err := s.Db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE payer_id = $1 OR receiver_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query for transactions by user ID: %w", err)
	}
	return collectTransactions(rows)
}

// CreateTransaction runs in one READ COMMITTED transaction. The conditional key update serializes
// concurrent requests on the same key, and account rows are locked in id order so two opposite
// transfers cannot deadlock.
func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction, requester string) (*models.Transaction, error) {
	dbtx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("tx begin failed: %w", err)
	}
	defer dbtx.Rollback(ctx)

	now := time.Now().UTC()

	// 1. Consume the key.
	tag, err := dbtx.Exec(ctx,
		"UPDATE idempotency_keys SET status = 'finished', transaction_id = $1, finished_at = $2 WHERE key = $3 AND owner = $4 AND status = 'active'",
		t.Id, now, t.IdempotencyKey, requester,
	)
	if err != nil {
		return nil, fmt.Errorf("key update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("idempotency key %s: %w", t.IdempotencyKey, storage.ErrIdempotencyKeyConsumed)
	}

	// 2. Lock both accounts in id order.
	first, second := t.PayerId, t.ReceiverId
	if first > second {
		first, second = second, first
	}
	balances := make(map[string]string, 2)
	for _, id := range []string{first, second} {
		var balance string
		err := dbtx.QueryRow(ctx, "SELECT balance::text FROM accounts WHERE id = $1 FOR UPDATE", id).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				role := "receiver"
				if id == t.PayerId {
					role = "payer"
				}
				return nil, fmt.Errorf("%s %s: %w", role, id, storage.ErrAccountNotFound)
			}
			return nil, fmt.Errorf("lock acquisition failed: %w", err)
		}
		balances[id] = balance
	}

	// 3. Check funds.
	payerBalance, err := parseAmount(balances[t.PayerId])
	if err != nil {
		return nil, err
	}
	if payerBalance.LessThan(t.Amount) {
		return nil, fmt.Errorf("payer %s: %w", t.PayerId, storage.ErrInsufficientFunds)
	}

	// 4. Debit into escrow.
	_, err = dbtx.Exec(ctx,
		"UPDATE accounts SET balance = balance - $1::text::numeric, version = version + 1 WHERE id = $2",
		t.Amount.String(), t.PayerId,
	)
	if err != nil {
		return nil, fmt.Errorf("debit failed: %w", err)
	}

	// 5. Insert the pending transaction.
	t.Status = models.PENDING
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err = dbtx.Exec(ctx,
		`INSERT INTO transactions (id, payer_id, receiver_id, amount, status, idempotency_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::text::numeric, $5, $6, $7, $8)`,
		t.Id, t.PayerId, t.ReceiverId, t.Amount.String(), string(t.Status), t.IdempotencyKey, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("transaction insert failed: %w", err)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit failed: %w", err)
	}
	return t, nil
}

// SettleTransaction moves the transaction out of pending and credits the beneficiary in one
// database transaction. The status update only matches a pending row.
func (s *Store) SettleTransaction(ctx context.Context, t *models.Transaction, status models.TransactionStatus, beneficiaryID string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot settle transaction %s to %q", t.Id, status)
	}

	dbtx, err := s.Db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer dbtx.Rollback(ctx)

	var amount string
	err = dbtx.QueryRow(ctx,
		"UPDATE transactions SET status = $1, updated_at = $2 WHERE id = $3 AND status = 'pending' RETURNING amount::text",
		string(status), time.Now().UTC(), t.Id,
	).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			if err := dbtx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)", t.Id).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check transaction: %w", err)
			}
			if !exists {
				return fmt.Errorf("transaction %s: %w", t.Id, storage.ErrTransactionNotFound)
			}
			return fmt.Errorf("transaction %s: %w", t.Id, storage.ErrTransactionAlreadySettled)
		}
		return fmt.Errorf("status update failed: %w", err)
	}

	tag, err := dbtx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1::text::numeric, version = version + 1 WHERE id = $2",
		amount, beneficiaryID,
	)
	if err != nil {
		return fmt.Errorf("credit failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("beneficiary %s: %w", beneficiaryID, storage.ErrAccountNotFound)
	}

	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}
