package transactions

import (
	"log/slog"
	"net/http"

	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/chris/escrow-transfers/pkg/handlers/respond"
	"github.com/chris/escrow-transfers/pkg/idempotency"
	"github.com/chris/escrow-transfers/pkg/ledger"
	"github.com/chris/escrow-transfers/pkg/mapping"
	"github.com/chris/escrow-transfers/pkg/scheduler"
)

// TransactionsHandler holds the dependencies for transaction-related handlers.
type TransactionsHandler struct {
	Keys      *idempotency.Manager
	Ledger    *ledger.Ledger
	Scheduler scheduler.Scheduler
}

// NewTransactionsHandler creates a new TransactionsHandler. A nil scheduler leaves
// new transactions pending until the reconciliation job dispatches them.
func NewTransactionsHandler(keys *idempotency.Manager, l *ledger.Ledger, s scheduler.Scheduler) *TransactionsHandler {
	return &TransactionsHandler{Keys: keys, Ledger: l, Scheduler: s}
}

// GenerateIdempotencyKey returns the caller's active key, issuing one if needed.
func (h *TransactionsHandler) GenerateIdempotencyKey(w http.ResponseWriter, r *http.Request, params api.GenerateIdempotencyKeyParams) {
	key, err := h.Keys.RequestKey(r.Context(), params.XUserId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, mapping.ToApiIdempotencyKey(key))
}

// CreateTransaction escrows the amount and hands the pending transaction to the gateway.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request, params api.CreateTransactionParams) {
	var newTx api.CreateTransactionJSONRequestBody
	if err := respond.Decode(r, &newTx); err != nil {
		respond.Error(w, r, err)
		return
	}

	amount, err := mapping.ToDomainAmount(newTx.Amount)
	if err != nil {
		respond.Error(w, r, apperrors.Wrap(apperrors.InvalidInput, err, "invalid amount"))
		return
	}

	created, err := h.Ledger.CreateTransaction(r.Context(), ledger.CreateRequest{
		PayerID:        newTx.PayerId,
		ReceiverID:     newTx.ReceiverId,
		Amount:         amount,
		IdempotencyKey: params.IdempotencyKey,
		Requester:      params.XUserId,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	// The transaction is committed; a dispatch failure is left to reconciliation.
	if h.Scheduler != nil {
		if err := h.Scheduler.ScheduleSettlement(r.Context(), created); err != nil {
			slog.Error("CRITICAL: transaction created but failed to enqueue for settlement",
				"transaction_id", created.Id, "error", err)
		}
	}

	respond.JSON(w, http.StatusCreated, mapping.ToApiTransactionCreated(created))
}

// GetTransactionById handles the logic for retrieving a transaction by its ID.
func (h *TransactionsHandler) GetTransactionById(w http.ResponseWriter, r *http.Request, transactionId string) {
	tx, err := h.Ledger.FindByID(r.Context(), transactionId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, mapping.ToApiTransaction(tx))
}

// ListTransactionsByUserId handles the logic for retrieving all transactions for a user.
func (h *TransactionsHandler) ListTransactionsByUserId(w http.ResponseWriter, r *http.Request, userId string) {
	summaries, err := h.Ledger.ListByUser(r.Context(), userId)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiSummaries := make([]*api.TransactionSummary, len(summaries))
	for i := range summaries {
		apiSummaries[i] = mapping.ToApiTransactionSummary(&summaries[i])
	}
	respond.JSON(w, http.StatusOK, apiSummaries)
}
