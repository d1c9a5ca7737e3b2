// Package reconciliation finds work the request path left unfinished.
package reconciliation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/scheduler"
)

// Store is what reconciliation reads.
type Store interface {
	GetStuckTransactions(ctx context.Context, maxAge time.Duration) ([]models.Transaction, error)
	ListStaleIdempotencyKeys(ctx context.Context, maxAge time.Duration) ([]models.IdempotencyKey, error)
}

// Report summarizes one run.
type Report struct {
	Stuck       int
	Rescheduled int
	StaleKeys   int
	FailedTxIDs []string
}

type Reconciler struct {
	Store      Store
	Scheduler  scheduler.Scheduler
	StuckAfter time.Duration
	StaleAfter time.Duration
}

func New(store Store, s scheduler.Scheduler, stuckAfter, staleAfter time.Duration) *Reconciler {
	return &Reconciler{Store: store, Scheduler: s, StuckAfter: stuckAfter, StaleAfter: staleAfter}
}

// Run re-sends transactions pending longer than StuckAfter to the gateway and reports
// active keys older than StaleAfter. Stale keys are only reported; they stay usable.
// A failure to reschedule one transaction does not stop the batch.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	stuck, err := r.Store.GetStuckTransactions(ctx, r.StuckAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to get stuck transactions: %w", err)
	}

	report := &Report{Stuck: len(stuck)}
	for i := range stuck {
		tx := &stuck[i]
		if err := r.Scheduler.ScheduleSettlement(ctx, tx); err != nil {
			slog.Error("failed to re-enqueue transaction", "transaction_id", tx.Id, "error", err)
			report.FailedTxIDs = append(report.FailedTxIDs, tx.Id)
			continue
		}
		report.Rescheduled++
		slog.Info("re-enqueued stuck transaction", "transaction_id", tx.Id, "created_at", tx.CreatedAt)
	}

	stale, err := r.Store.ListStaleIdempotencyKeys(ctx, r.StaleAfter)
	if err != nil {
		return report, fmt.Errorf("failed to list stale idempotency keys: %w", err)
	}
	report.StaleKeys = len(stale)
	for _, k := range stale {
		slog.Warn("stale active idempotency key", "key", k.Key, "owner", k.Owner, "created_at", k.CreatedAt)
	}

	return report, nil
}
