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

func (s *Store) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if account.Version == 0 {
		account.Version = 1
	}

	_, err := s.Db.Exec(ctx,
		"INSERT INTO accounts (id, balance, version, created_at) VALUES ($1, $2::text::numeric, $3, $4)",
		account.Id, account.Balance.String(), account.Version, account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("account %s already exists", account.Id)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	var balance string
	err := s.Db.QueryRow(ctx,
		"SELECT id, balance::text, version, created_at FROM accounts WHERE id = $1", accountID,
	).Scan(&account.Id, &balance, &account.Version, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", accountID, storage.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.Balance, err = parseAmount(balance); err != nil {
		return nil, err
	}
	return &account, nil
}
