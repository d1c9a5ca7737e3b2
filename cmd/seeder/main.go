// Command seeder creates accounts with opening balances.
//
//	seeder alice=500 bob=300.25
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/chris/escrow-transfers/pkg/config"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/chris/escrow-transfers/pkg/storage/backend"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s account_id=balance ...\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	accounts := make([]*models.Account, 0, flag.NArg())
	for _, arg := range flag.Args() {
		account, err := parseSeed(arg)
		if err != nil {
			log.Fatal(err)
		}
		accounts = append(accounts, account)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(false); err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx := context.Background()
	store, closeStore, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("unable to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer closeStore()

	if failed := seedAccounts(ctx, store, accounts); failed > 0 {
		closeStore()
		os.Exit(1)
	}
}

// seedAccounts creates each account that does not exist yet and returns how many could not be
// created. Existing accounts keep their balance.
func seedAccounts(ctx context.Context, store storage.AccountStore, accounts []*models.Account) int {
	failed := 0
	for _, account := range accounts {
		if existing, err := store.GetAccount(ctx, account.Id); err == nil {
			slog.Info("account already seeded", "account_id", account.Id, "balance", existing.Balance.String())
			continue
		} else if !storage.IsNotFound(err) {
			slog.Error("failed to look up account", "account_id", account.Id, "error", err)
			failed++
			continue
		}

		if _, err := store.CreateAccount(ctx, account); err != nil {
			slog.Error("failed to seed account", "account_id", account.Id, "error", err)
			failed++
			continue
		}
		slog.Info("seeded account", "account_id", account.Id, "balance", account.Balance.String())
	}
	return failed
}

// parseSeed parses "id=balance".
func parseSeed(arg string) (*models.Account, error) {
	id, raw, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("invalid seed %q, want account_id=balance", arg)
	}
	balance, err := models.ParseAmount(raw)
	if err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("invalid seed %q: balance must not be negative", arg)
	}
	return &models.Account{Id: strings.TrimSpace(id), Balance: balance}, nil
}
