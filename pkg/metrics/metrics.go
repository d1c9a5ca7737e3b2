// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCreated counts creation attempts by result: "created" or an error kind.
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_transactions_created_total",
		Help: "Transaction creation attempts, labeled by result",
	}, []string{"result"})

	// SettlementOutcomes counts settlement notifications by verdict ("approved", "failed" or "unknown")
	// and outcome.
	SettlementOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_settlement_outcomes_total",
		Help: "Settlement notifications processed, labeled by reported status and outcome",
	}, []string{"reported_status", "outcome"})

	EventAppendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_event_append_failures_total",
		Help: "Settlement events that could not be written to the event log",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "escrow_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route", "status"})
)
