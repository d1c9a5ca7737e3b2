package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
)

func (s *Store) AppendSettlementEvent(ctx context.Context, event *models.SettlementEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	var seq int64
	err := s.Db.QueryRow(ctx,
		`INSERT INTO settlement_events (transaction_id, reported_status, outcome, detail, recorded_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING seq`,
		event.TransactionId, event.ReportedStatus, string(event.Outcome), event.Detail, event.Timestamp,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to insert settlement event: %w", err)
	}

	event.EventId = strconv.FormatInt(seq, 10)
	return nil
}

func (s *Store) ListSettlementEvents(ctx context.Context, transactionID string) ([]models.SettlementEvent, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT seq, transaction_id, reported_status, outcome, detail, recorded_at
		 FROM settlement_events
		 WHERE $1 = '' OR transaction_id = $1
		 ORDER BY seq`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query for settlement events: %w", err)
	}
	defer rows.Close()

	events := []models.SettlementEvent{}
	for rows.Next() {
		var e models.SettlementEvent
		var seq int64
		if err := rows.Scan(&seq, &e.TransactionId, &e.ReportedStatus, &e.Outcome, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan settlement event: %w", err)
		}
		e.EventId = strconv.FormatInt(seq, 10)
		events = append(events, e)
	}
	return events, rows.Err()
}
