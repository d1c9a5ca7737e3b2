package storage

import (
	"context"

	"github.com/chris/escrow-transfers/pkg/models"
)

// SettlementStore defines the highly-privileged interface for settling a transaction.
// This operation involves atomic writes across the transactions and accounts collections.
// It should only be exposed to the component responsible for final settlement.
type SettlementStore interface {
	// SettleTransaction moves tx from pending to status and credits tx.Amount to
	// beneficiaryID in one atomic write. It returns ErrTransactionAlreadySettled if
	// tx is no longer pending and ErrAccountNotFound if the beneficiary is gone;
	// in both cases nothing is written.
	SettleTransaction(ctx context.Context, tx *models.Transaction, status models.TransactionStatus, beneficiaryID string) error
}
