package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/chris/escrow-transfers/pkg/models"
)

// ErrUnattributable is returned for queued notifications that do not name a transaction.
// Nothing is recorded for them.
var ErrUnattributable = errors.New("notification does not name a transaction")

type queuedNotification struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// HandleMessage settles from a queued gateway notification body. A body that names a transaction
// but carries no status is recorded as rejected.
func (m *Machine) HandleMessage(ctx context.Context, body []byte) (models.SettlementEvent, error) {
	var n queuedNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return models.SettlementEvent{}, fmt.Errorf("%w: %v", ErrUnattributable, err)
	}
	if n.TransactionID == "" {
		return models.SettlementEvent{}, ErrUnattributable
	}
	if n.Status == "" {
		return m.Reject(ctx, n.TransactionID, "", "status is required"), nil
	}
	return m.HandleNotification(ctx, n.TransactionID, n.Status), nil
}
