// Package eventlog records one audit entry per inbound settlement notification.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chris/escrow-transfers/pkg/metrics"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
)

const unknownStatusLabel = "unknown"

type Log struct {
	store storage.EventStore
}

func New(store storage.EventStore) *Log {
	return &Log{store: store}
}

// Append writes event. A failed write is logged and counted but never reported to the caller:
// the notification it describes has already been acted on.
func (l *Log) Append(ctx context.Context, event models.SettlementEvent) {
	metrics.SettlementOutcomes.WithLabelValues(statusLabel(event.ReportedStatus), string(event.Outcome)).Inc()

	if err := l.store.AppendSettlementEvent(ctx, &event); err != nil {
		metrics.EventAppendFailures.Inc()
		slog.Error("failed to append settlement event",
			"transaction_id", event.TransactionId,
			"reported_status", event.ReportedStatus,
			"outcome", event.Outcome,
			"detail", event.Detail,
			"error", err,
		)
		return
	}

	slog.Info("settlement event recorded",
		"event_id", event.EventId,
		"transaction_id", event.TransactionId,
		"outcome", event.Outcome,
		"detail", event.Detail,
	)
}

// statusLabel keeps the metric's label set closed. Any status the gateway may send other than a
// terminal one is counted as "unknown"; the raw value stays in the event record.
func statusLabel(reported string) string {
	if s := models.TransactionStatus(reported); s.IsTerminal() {
		return string(s)
	}
	return unknownStatusLabel
}

// List returns events in insertion order. An empty transactionID lists every event.
func (l *Log) List(ctx context.Context, transactionID string) ([]models.SettlementEvent, error) {
	events, err := l.store.ListSettlementEvents(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement events: %w", err)
	}
	return events, nil
}
