package mapping

import (
	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/models"
)

// ToApiTransaction converts a domain Transaction model to an API Transaction model.
func ToApiTransaction(tx *models.Transaction) *api.Transaction {
	return &api.Transaction{
		Id:             tx.Id,
		PayerId:        tx.PayerId,
		ReceiverId:     tx.ReceiverId,
		Amount:         tx.Amount.String(),
		Status:         api.TransactionStatus(tx.Status),
		IdempotencyKey: tx.IdempotencyKey,
		CreatedAt:      tx.CreatedAt,
		UpdatedAt:      tx.UpdatedAt,
	}
}

// ToApiTransactionCreated is the creation receipt returned to the payer.
func ToApiTransactionCreated(tx *models.Transaction) *api.TransactionCreated {
	return &api.TransactionCreated{
		TransactionId: tx.Id,
		Status:        api.TransactionStatus(tx.Status),
		CreatedAt:     tx.CreatedAt,
	}
}

// ToApiTransactionSummary converts one row of a user's transaction listing.
func ToApiTransactionSummary(s *models.TransactionSummary) *api.TransactionSummary {
	return &api.TransactionSummary{
		TransactionId: s.TransactionId,
		Direction:     api.TransactionSummaryDirection(s.Direction),
		Counterparty:  s.Counterparty,
		Amount:        s.Amount.String(),
		Status:        api.TransactionStatus(s.Status),
		CreatedAt:     s.CreatedAt,
	}
}

// ToApiIdempotencyKey converts a domain IdempotencyKey model to an API IdempotencyKey model.
func ToApiIdempotencyKey(key *models.IdempotencyKey) *api.IdempotencyKey {
	apiKey := &api.IdempotencyKey{
		Key:       key.Key,
		Owner:     key.Owner,
		Status:    api.IdempotencyKeyStatus(key.Status),
		CreatedAt: key.CreatedAt,
	}
	if key.TransactionId != "" {
		txID := key.TransactionId
		apiKey.TransactionId = &txID
	}
	return apiKey
}

func ToApiSettlementEvent(event *models.SettlementEvent) *api.SettlementEvent {
	return &api.SettlementEvent{
		EventId:        event.EventId,
		TransactionId:  event.TransactionId,
		ReportedStatus: event.ReportedStatus,
		Outcome:        api.SettlementEventOutcome(event.Outcome),
		Detail:         event.Detail,
		Timestamp:      event.Timestamp,
	}
}

// ToDomainAmount parses the decimal string carried by API requests.
func ToDomainAmount(raw string) (models.Amount, error) {
	return models.ParseAmount(raw)
}
