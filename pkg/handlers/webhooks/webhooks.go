package webhooks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/eventlog"
	"github.com/chris/escrow-transfers/pkg/handlers/respond"
	"github.com/chris/escrow-transfers/pkg/mapping"
	"github.com/chris/escrow-transfers/pkg/settlement"
)

const ackMessage = "notification received"

// WebhooksHandler receives payment gateway callbacks and serves the settlement event log.
type WebhooksHandler struct {
	Settlement *settlement.Machine
	Events     *eventlog.Log
}

// NewWebhooksHandler creates a new WebhooksHandler.
func NewWebhooksHandler(machine *settlement.Machine, events *eventlog.Log) *WebhooksHandler {
	return &WebhooksHandler{Settlement: machine, Events: events}
}

// HandlePaymentGatewayNotification settles the referenced transaction. Once the body parses the
// gateway always gets a 200: unknown transactions, repeated deliveries and storage failures are
// recorded in the event log, not reported back. An invalid body that still names a transaction
// is logged as rejected before the 400.
func (h *WebhooksHandler) HandlePaymentGatewayNotification(w http.ResponseWriter, r *http.Request) {
	var notification api.HandlePaymentGatewayNotificationJSONRequestBody
	if err := respond.Decode(r, &notification); err != nil {
		if notification.TransactionId != "" {
			h.Settlement.Reject(context.WithoutCancel(r.Context()), notification.TransactionId, notification.Status, err.Error())
		}
		respond.Error(w, r, err)
		return
	}

	// A gateway that hangs up mid-request must not abort the settlement write.
	ctx := context.WithoutCancel(r.Context())
	event := h.Settlement.HandleNotification(ctx, notification.TransactionId, notification.Status)

	slog.Info("settlement notification processed",
		"transaction_id", event.TransactionId,
		"reported_status", event.ReportedStatus,
		"outcome", event.Outcome,
		"detail", event.Detail,
	)
	respond.JSON(w, http.StatusOK, api.NotificationAck{Message: ackMessage})
}

// ListSettlementEvents returns the event log in insertion order, optionally for one transaction.
func (h *WebhooksHandler) ListSettlementEvents(w http.ResponseWriter, r *http.Request, params api.ListSettlementEventsParams) {
	var transactionID string
	if params.TransactionId != nil {
		transactionID = *params.TransactionId
	}

	events, err := h.Events.List(r.Context(), transactionID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	apiEvents := make([]*api.SettlementEvent, len(events))
	for i := range events {
		apiEvents[i] = mapping.ToApiSettlementEvent(&events[i])
	}
	respond.JSON(w, http.StatusOK, apiEvents)
}
