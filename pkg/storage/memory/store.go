// Package memory is a process-local storage backend for development and tests.
// Every multi-record operation runs under one mutex, which makes it atomic with respect to
// every other call on the same Store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	keys         map[string]models.IdempotencyKey
	activeKeys   map[string]string // owner -> key
	transactions map[string]models.Transaction
	events       []models.SettlementEvent
	nextEventID  uint64
	now          func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]models.Account),
		keys:         make(map[string]models.IdempotencyKey),
		activeKeys:   make(map[string]string),
		transactions: make(map[string]models.Transaction),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.Storage = (*Store)(nil)

func (s *Store) CreateAccount(_ context.Context, account *models.Account) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Id]; ok {
		return nil, fmt.Errorf("account %s already exists", account.Id)
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = s.now()
	}
	if account.Version == 0 {
		account.Version = 1
	}
	s.accounts[account.Id] = *account
	return account, nil
}

func (s *Store) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountID, storage.ErrAccountNotFound)
	}
	return &account, nil
}

func (s *Store) GetIdempotencyKey(_ context.Context, key string) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[key]
	if !ok {
		return nil, fmt.Errorf("idempotency key %s: %w", key, storage.ErrIdempotencyKeyNotFound)
	}
	return &k, nil
}

func (s *Store) FindIdempotencyKey(_ context.Context, owner string, status models.KeyStatus) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == models.KeyActive {
		if key, ok := s.activeKeys[owner]; ok {
			k := s.keys[key]
			return &k, nil
		}
		return nil, fmt.Errorf("active key for %s: %w", owner, storage.ErrIdempotencyKeyNotFound)
	}

	var found *models.IdempotencyKey
	for _, k := range s.keys {
		if k.Owner != owner || k.Status != status {
			continue
		}
		if found == nil || k.CreatedAt.After(found.CreatedAt) {
			k := k
			found = &k
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s key for %s: %w", status, owner, storage.ErrIdempotencyKeyNotFound)
	}
	return found, nil
}

func (s *Store) CreateIdempotencyKey(_ context.Context, key *models.IdempotencyKey) (*models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.activeKeys[key.Owner]; ok {
		return nil, fmt.Errorf("owner %s: %w", key.Owner, storage.ErrActiveKeyExists)
	}
	if _, ok := s.keys[key.Key]; ok {
		return nil, fmt.Errorf("idempotency key %s already exists", key.Key)
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = s.now()
	}
	key.Status = models.KeyActive
	s.keys[key.Key] = *key
	s.activeKeys[key.Owner] = key.Key
	return key, nil
}

func (s *Store) ListStaleIdempotencyKeys(_ context.Context, maxAge time.Duration) ([]models.IdempotencyKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var stale []models.IdempotencyKey
	for _, key := range s.activeKeys {
		if k := s.keys[key]; k.CreatedAt.Before(cutoff) {
			stale = append(stale, k)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	return stale, nil
}

func (s *Store) GetTransaction(_ context.Context, txID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return nil, fmt.Errorf("transaction %s: %w", txID, storage.ErrTransactionNotFound)
	}
	return &tx, nil
}

func (s *Store) GetStuckTransactions(_ context.Context, maxAge time.Duration) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	var stuck []models.Transaction
	for _, tx := range s.transactions {
		if tx.Status == models.PENDING && tx.CreatedAt.Before(cutoff) {
			stuck = append(stuck, tx)
		}
	}
	sort.Slice(stuck, func(i, j int) bool { return stuck[i].CreatedAt.Before(stuck[j].CreatedAt) })
	return stuck, nil
}

func (s *Store) ListTransactionsByUserID(_ context.Context, userID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []models.Transaction
	for _, tx := range s.transactions {
		if tx.PayerId == userID || tx.ReceiverId == userID {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].CreatedAt.After(txs[j].CreatedAt) })
	return txs, nil
}

// CreateTransaction checks every condition before mutating anything, so a failure leaves
// the key, the accounts and the transaction set untouched.
func (s *Store) CreateTransaction(_ context.Context, tx *models.Transaction, requester string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[tx.IdempotencyKey]
	if !ok || key.Status != models.KeyActive || key.Owner != requester {
		return nil, fmt.Errorf("idempotency key %s: %w", tx.IdempotencyKey, storage.ErrIdempotencyKeyConsumed)
	}
	payer, ok := s.accounts[tx.PayerId]
	if !ok {
		return nil, fmt.Errorf("payer %s: %w", tx.PayerId, storage.ErrAccountNotFound)
	}
	if payer.Balance.LessThan(tx.Amount) {
		return nil, fmt.Errorf("payer %s: %w", tx.PayerId, storage.ErrInsufficientFunds)
	}
	if _, ok := s.accounts[tx.ReceiverId]; !ok {
		return nil, fmt.Errorf("receiver %s: %w", tx.ReceiverId, storage.ErrAccountNotFound)
	}
	if _, ok := s.transactions[tx.Id]; ok {
		return nil, fmt.Errorf("transaction %s already exists", tx.Id)
	}

	now := s.now()
	tx.Status = models.PENDING
	tx.CreatedAt = now
	tx.UpdatedAt = now

	key.Status = models.KeyFinished
	key.TransactionId = tx.Id
	key.FinishedAt = &now
	s.keys[key.Key] = key
	delete(s.activeKeys, requester)

	payer.Balance = payer.Balance.Sub(tx.Amount)
	payer.Version++
	s.accounts[payer.Id] = payer

	s.transactions[tx.Id] = *tx
	return tx, nil
}

func (s *Store) SettleTransaction(_ context.Context, tx *models.Transaction, status models.TransactionStatus, beneficiaryID string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot settle transaction %s to %q", tx.Id, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.transactions[tx.Id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", tx.Id, storage.ErrTransactionNotFound)
	}
	if current.Status != models.PENDING {
		return fmt.Errorf("transaction %s: %w", tx.Id, storage.ErrTransactionAlreadySettled)
	}
	beneficiary, ok := s.accounts[beneficiaryID]
	if !ok {
		return fmt.Errorf("beneficiary %s: %w", beneficiaryID, storage.ErrAccountNotFound)
	}

	current.Status = status
	current.UpdatedAt = s.now()
	s.transactions[current.Id] = current

	beneficiary.Balance = beneficiary.Balance.Add(current.Amount)
	beneficiary.Version++
	s.accounts[beneficiary.Id] = beneficiary
	return nil
}

func (s *Store) AppendSettlementEvent(_ context.Context, event *models.SettlementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	event.EventId = strconv.FormatUint(s.nextEventID, 10)
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *Store) ListSettlementEvents(_ context.Context, transactionID string) ([]models.SettlementEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []models.SettlementEvent{}
	for _, e := range s.events {
		if transactionID == "" || e.TransactionId == transactionID {
			events = append(events, e)
		}
	}
	return events, nil
}
