// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects the storage implementation.
type Backend string

const (
	BackendDynamoDB Backend = "dynamodb"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

const (
	defaultPort                      = "8080"
	defaultCreateTimeout             = 5 * time.Second
	defaultStuckTransactionThreshold = 20 * time.Minute
	defaultStaleKeyThreshold         = 24 * time.Hour
)

type Config struct {
	StorageBackend Backend

	AccountsTable     string
	IdempotencyTable  string
	TransactionsTable string
	EventsTable       string

	DatabaseURL string
	SQSQueueURL string
	HTTPPort    string

	CreateTimeout             time.Duration
	StuckTransactionThreshold time.Duration
	StaleKeyThreshold         time.Duration

	LogLevel slog.Level
}

// Load reads a .env file if one exists, then the environment. Malformed values are
// reported together; required-variable checks are left to Validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg := &Config{
		StorageBackend:    Backend(strings.ToLower(getenv("STORAGE_BACKEND", string(BackendDynamoDB)))),
		AccountsTable:     os.Getenv("DYNAMODB_ACCOUNTS_TABLE_NAME"),
		IdempotencyTable:  os.Getenv("DYNAMODB_IDEMPOTENCY_TABLE_NAME"),
		TransactionsTable: os.Getenv("DYNAMODB_TRANSACTIONS_TABLE_NAME"),
		EventsTable:       os.Getenv("DYNAMODB_EVENTS_TABLE_NAME"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQSQueueURL:       os.Getenv("SQS_QUEUE_URL"),
		HTTPPort:          getenv("HTTP_PORT", defaultPort),
	}

	var errs []error
	var err error
	if cfg.CreateTimeout, err = duration("CREATE_TIMEOUT", defaultCreateTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.StuckTransactionThreshold, err = duration("STUCK_TRANSACTION_THRESHOLD", defaultStuckTransactionThreshold); err != nil {
		errs = append(errs, err)
	}
	if cfg.StaleKeyThreshold, err = duration("STALE_KEY_THRESHOLD", defaultStaleKeyThreshold); err != nil {
		errs = append(errs, err)
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every variable the selected backend needs but did not get.
// requireQueue is set by processes that dispatch to the gateway.
func (c *Config) Validate(requireQueue bool) error {
	var missing []string
	switch c.StorageBackend {
	case BackendDynamoDB:
		for name, value := range map[string]string{
			"DYNAMODB_ACCOUNTS_TABLE_NAME":     c.AccountsTable,
			"DYNAMODB_IDEMPOTENCY_TABLE_NAME":  c.IdempotencyTable,
			"DYNAMODB_TRANSACTIONS_TABLE_NAME": c.TransactionsTable,
			"DYNAMODB_EVENTS_TABLE_NAME":       c.EventsTable,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of dynamodb, postgres, memory; got %q", c.StorageBackend)
	}
	if requireQueue && c.SQSQueueURL == "" {
		missing = append(missing, "SQS_QUEUE_URL")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// NewLogger returns a JSON logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func duration(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", name, raw)
	}
	return d, nil
}
