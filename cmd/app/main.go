package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/escrow-transfers/pkg/api"
	"github.com/chris/escrow-transfers/pkg/config"
	"github.com/chris/escrow-transfers/pkg/eventlog"
	"github.com/chris/escrow-transfers/pkg/handlers"
	"github.com/chris/escrow-transfers/pkg/handlers/respond"
	"github.com/chris/escrow-transfers/pkg/handlers/transactions"
	"github.com/chris/escrow-transfers/pkg/handlers/webhooks"
	"github.com/chris/escrow-transfers/pkg/idempotency"
	"github.com/chris/escrow-transfers/pkg/ledger"
	appmiddleware "github.com/chris/escrow-transfers/pkg/middleware"
	"github.com/chris/escrow-transfers/pkg/scheduler"
	"github.com/chris/escrow-transfers/pkg/settlement"
	"github.com/chris/escrow-transfers/pkg/storage/backend"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal(err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("unable to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer closeStore()

	// Without a queue, new transactions wait for the reconciliation job to dispatch them.
	var sched scheduler.Scheduler
	if cfg.SQSQueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			log.Fatalf("unable to load SDK config, %v", err)
		}
		sched = scheduler.NewSQSScheduler(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL)
	} else {
		slog.Warn("SQS_QUEUE_URL not set; transactions will not be dispatched to the gateway")
	}

	keys := idempotency.New(store)
	events := eventlog.New(store)
	handler := handlers.NewApiHandler(
		transactions.NewTransactionsHandler(keys, ledger.New(store, keys, cfg.CreateTimeout), sched),
		webhooks.NewWebhooksHandler(settlement.New(store, events), events),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(appmiddleware.NewStructuredLogger(logger))
	router.Use(appmiddleware.Metrics)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	api.HandlerWithOptions(handler, api.ChiServerOptions{
		BaseRouter:       router,
		ErrorHandlerFunc: respond.ParamError,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", cfg.HTTPPort, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
