package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/escrow-transfers/pkg/config"
	"github.com/chris/escrow-transfers/pkg/reconciliation"
	"github.com/chris/escrow-transfers/pkg/scheduler"
	"github.com/chris/escrow-transfers/pkg/storage/backend"
)

var reconciler *reconciliation.Reconciler

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(true); err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx := context.Background()
	store, _, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("unable to open %s storage: %v", cfg.StorageBackend, err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("unable to load SDK config, %v", err)
	}
	sqsScheduler := scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL)

	reconciler = reconciliation.New(store, sqsScheduler, cfg.StuckTransactionThreshold, cfg.StaleKeyThreshold)
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	slog.Info("starting reconciliation")

	report, err := reconciler.Run(ctx)
	if err != nil {
		slog.Error("reconciliation failed", "error", err)
		return err
	}

	slog.Info("reconciliation finished",
		"stuck", report.Stuck,
		"rescheduled", report.Rescheduled,
		"failed", len(report.FailedTxIDs),
		"stale_keys", report.StaleKeys,
	)
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
