package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/escrow-transfers/pkg/config"
	"github.com/chris/escrow-transfers/pkg/eventlog"
	"github.com/chris/escrow-transfers/pkg/settlement"
	"github.com/chris/escrow-transfers/pkg/storage/backend"
)

var machine *settlement.Machine

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(cfg.NewLogger())

	store, _, err := backend.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("unable to open %s storage: %v", cfg.StorageBackend, err)
	}
	machine = settlement.New(store, eventlog.New(store))
}

// HandleRequest settles the transaction named by each gateway notification.
// The batch is always acknowledged; outcomes, rejections included, are recorded in the event log.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		event, err := machine.HandleMessage(ctx, []byte(message.Body))
		if err != nil {
			slog.Error("discarding malformed settlement notification",
				"message_id", message.MessageId, "error", err)
			continue
		}

		slog.Info("settlement notification processed",
			"message_id", message.MessageId,
			"transaction_id", event.TransactionId,
			"outcome", event.Outcome,
			"detail", event.Detail,
		)
	}
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
