// Package postgres implements the storage interfaces on PostgreSQL through pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// Store implements storage.Storage on a pgx connection pool.
type Store struct {
	Db *pgxpool.Pool
}

var _ storage.Storage = (*Store)(nil)

// New connects to connString and verifies the connection.
func New(ctx context.Context, connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.Db.Close()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

// Amounts cross the wire as text so NUMERIC values keep every digit.
func parseAmount(raw string) (models.Amount, error) {
	a, err := models.ParseAmount(raw)
	if err != nil {
		return models.Amount{}, fmt.Errorf("corrupt amount in database: %w", err)
	}
	return a, nil
}

const transactionColumns = "id, payer_id, receiver_id, amount::text, status, idempotency_key, created_at, updated_at"

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	var amount string
	if err := row.Scan(&tx.Id, &tx.PayerId, &tx.ReceiverId, &amount, &tx.Status, &tx.IdempotencyKey, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	tx.Amount = a
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}
