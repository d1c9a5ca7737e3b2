package storage

import (
	"context"

	"github.com/chris/escrow-transfers/pkg/models"
)

// EventStore is the append-only settlement event collection.
type EventStore interface {
	// AppendSettlementEvent stores event and assigns its sequence id.
	AppendSettlementEvent(ctx context.Context, event *models.SettlementEvent) error

	// ListSettlementEvents returns events in insertion order, optionally filtered by transaction.
	ListSettlementEvents(ctx context.Context, transactionID string) ([]models.SettlementEvent, error)
}
