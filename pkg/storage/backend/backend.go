// Package backend builds the storage.Storage selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/escrow-transfers/pkg/config"
	"github.com/chris/escrow-transfers/pkg/storage"
	dydbstore "github.com/chris/escrow-transfers/pkg/storage/dynamodb"
	"github.com/chris/escrow-transfers/pkg/storage/memory"
	"github.com/chris/escrow-transfers/pkg/storage/postgres"
)

// Open returns the configured store and a function releasing its resources.
// The Postgres schema is applied on open.
func Open(ctx context.Context, cfg *config.Config) (storage.Storage, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendDynamoDB:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		store := dydbstore.New(dynamodb.NewFromConfig(awsCfg),
			cfg.AccountsTable, cfg.IdempotencyTable, cfg.TransactionsTable, cfg.EventsTable)
		return store, func() {}, nil

	case config.BackendPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.BackendMemory:
		slog.Warn("using in-memory storage; all data is lost on exit")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
}
