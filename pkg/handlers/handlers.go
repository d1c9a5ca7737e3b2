package handlers

import (
	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/handlers/transactions"
	"github.com/chris/escrow-transfers/pkg/handlers/webhooks"
)

// ApiHandler implements the generated server interface by composing the
// per-resource handlers.
type ApiHandler struct {
	*transactions.TransactionsHandler
	*webhooks.WebhooksHandler
}

// NewApiHandler creates a new ApiHandler.
func NewApiHandler(tx *transactions.TransactionsHandler, wh *webhooks.WebhooksHandler) *ApiHandler {
	return &ApiHandler{TransactionsHandler: tx, WebhooksHandler: wh}
}

// Make sure we conform to the interface
var _ api.ServerInterface = (*ApiHandler)(nil)
