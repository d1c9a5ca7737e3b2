package scheduler

import (
	"context"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
)

// Scheduler hands a pending transaction to the payment gateway for settlement.
type Scheduler interface {
	// ScheduleSettlement enqueues tx for the gateway. The gateway reports its verdict back
	// asynchronously through the settlement webhook or queue.
	ScheduleSettlement(ctx context.Context, tx *models.Transaction) error
}

// SettlementRequest is the message body the gateway receives for each pending transaction.
type SettlementRequest struct {
	TransactionId string        `json:"transaction_id"`
	PayerId       string        `json:"payer_id"`
	ReceiverId    string        `json:"receiver_id"`
	Amount        models.Amount `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NewSettlementRequest builds the gateway message for tx.
func NewSettlementRequest(tx *models.Transaction) SettlementRequest {
	return SettlementRequest{
		TransactionId: tx.Id,
		PayerId:       tx.PayerId,
		ReceiverId:    tx.ReceiverId,
		Amount:        tx.Amount,
		CreatedAt:     tx.CreatedAt,
	}
}
