// Package settlement drives pending transactions to their terminal status when the payment
// gateway reports a verdict.
//
// A notification is never rejected back to the gateway. Whatever happens, including storage
// failures, the outcome is written to the event log and the caller gets an acknowledgment.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chris/escrow-transfers/pkg/eventlog"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
)

const (
	detailNotFound       = "transaction not found"
	detailAlreadySettled = "already settled"
)

// Store is what settlement needs from storage.
type Store interface {
	storage.AccountReader
	storage.TransactionReader
	storage.SettlementStore
}

type Machine struct {
	store  Store
	events *eventlog.Log
}

func New(store Store, events *eventlog.Log) *Machine {
	return &Machine{store: store, events: events}
}

// HandleNotification settles transactionID according to the reported status string and returns
// the event it recorded.
func (m *Machine) HandleNotification(ctx context.Context, transactionID, reportedStatus string) models.SettlementEvent {
	verdict, err := ParseVerdict(reportedStatus)
	if err != nil {
		return m.Reject(ctx, transactionID, reportedStatus, err.Error())
	}
	return m.Settle(ctx, transactionID, verdict)
}

// Reject records a notification for transactionID that was turned away before settlement.
func (m *Machine) Reject(ctx context.Context, transactionID, reportedStatus, reason string) models.SettlementEvent {
	event := models.SettlementEvent{
		TransactionId:  transactionID,
		ReportedStatus: reportedStatus,
		Outcome:        models.OutcomeError,
		Detail:         "rejected: " + reason,
	}
	m.events.Append(ctx, event)
	return event
}

// Settle applies verdict to transactionID at most once. Exactly one event is appended per call,
// including when settlement panics.
func (m *Machine) Settle(ctx context.Context, transactionID string, verdict Verdict) models.SettlementEvent {
	event := models.SettlementEvent{TransactionId: transactionID}
	if verdict != nil {
		event.ReportedStatus = string(verdict.Status())
	}
	event.Outcome, event.Detail = m.recoverSettle(ctx, transactionID, verdict)
	m.events.Append(ctx, event)
	return event
}

func (m *Machine) recoverSettle(ctx context.Context, transactionID string, verdict Verdict) (outcome models.EventOutcome, detail string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("settlement panicked", "transaction_id", transactionID, "panic", r)
			outcome, detail = models.OutcomeError, fmt.Sprintf("settlement aborted: %v", r)
		}
	}()
	if verdict == nil {
		return models.OutcomeError, "no verdict"
	}
	return m.settle(ctx, transactionID, verdict)
}

func (m *Machine) settle(ctx context.Context, transactionID string, verdict Verdict) (models.EventOutcome, string) {
	tx, err := m.store.GetTransaction(ctx, transactionID)
	if err != nil {
		if storage.IsNotFound(err) {
			return models.OutcomeError, detailNotFound
		}
		slog.Error("failed to load transaction for settlement", "transaction_id", transactionID, "error", err)
		return models.OutcomeError, fmt.Sprintf("failed to load transaction: %v", err)
	}

	if tx.Status != models.PENDING {
		return models.OutcomeNoop, detailAlreadySettled
	}

	for _, id := range []string{tx.PayerId, tx.ReceiverId} {
		if _, err := m.store.GetAccount(ctx, id); err != nil {
			if storage.IsNotFound(err) {
				slog.Warn("settlement counterparty missing, transaction left pending",
					"transaction_id", tx.Id, "account_id", id)
				return models.OutcomeError, fmt.Sprintf("account %s not found; transaction left pending", id)
			}
			return models.OutcomeError, fmt.Sprintf("failed to load account %s: %v", id, err)
		}
	}

	to := beneficiary(verdict, tx)
	if err := m.store.SettleTransaction(ctx, tx, verdict.Status(), to); err != nil {
		switch {
		case errors.Is(err, storage.ErrTransactionAlreadySettled):
			return models.OutcomeNoop, detailAlreadySettled
		case errors.Is(err, storage.ErrAccountNotFound):
			return models.OutcomeError, fmt.Sprintf("account %s not found; transaction left pending", to)
		}
		slog.Error("settlement write failed", "transaction_id", tx.Id, "error", err)
		return models.OutcomeError, fmt.Sprintf("settlement failed: %v", err)
	}

	switch verdict.(type) {
	case Approved:
		return models.OutcomeSuccess, fmt.Sprintf("transaction approved: %s transferred to %s", tx.Amount, to)
	case Failed:
		return models.OutcomeSuccess, fmt.Sprintf("transaction failed: %s refunded to %s", tx.Amount, to)
	}
	panic("settlement: unhandled verdict")
}
