package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/chris/escrow-transfers/pkg/idempotency"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/chris/escrow-transfers/pkg/storage/memory"
	"github.com/chris/escrow-transfers/pkg/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type fixture struct {
	store  *memory.Store
	keys   *idempotency.Manager
	ledger *Ledger
}

func newFixture(t *testing.T, balances map[string]int64) *fixture {
	t.Helper()
	store := memory.New()
	for id, balance := range balances {
		_, err := store.CreateAccount(context.Background(), &models.Account{Id: id, Balance: models.NewAmount(balance)})
		require.NoError(t, err)
	}
	keys := idempotency.New(store)
	return &fixture{store: store, keys: keys, ledger: New(store, keys, time.Second)}
}

func (f *fixture) key(t *testing.T, owner string) string {
	t.Helper()
	k, err := f.keys.RequestKey(context.Background(), owner)
	require.NoError(t, err)
	return k.Key
}

func (f *fixture) balance(t *testing.T, id string) string {
	t.Helper()
	a, err := f.store.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return a.Balance.String()
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500, "bob": 0})
		key := f.key(t, "alice")

		tx, err := f.ledger.CreateTransaction(ctx, CreateRequest{
			PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(300), IdempotencyKey: key, Requester: "alice",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, tx.Id)
		assert.Equal(t, models.PENDING, tx.Status)
		assert.False(t, tx.CreatedAt.IsZero())
		assert.Equal(t, "200", f.balance(t, "alice"))
		assert.Equal(t, "0", f.balance(t, "bob"))

		used, err := f.keys.Lookup(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, models.KeyFinished, used.Status)
		assert.Equal(t, tx.Id, used.TransactionId)

		next := f.key(t, "alice")
		assert.NotEqual(t, key, next)
	})

	t.Run("Invalid Input", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500, "bob": 0})
		valid := CreateRequest{PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(1), IdempotencyKey: "k", Requester: "alice"}

		cases := map[string]func(r *CreateRequest){
			"Empty Payer":    func(r *CreateRequest) { r.PayerID = "" },
			"Empty Receiver": func(r *CreateRequest) { r.ReceiverID = "" },
			"Empty Key":      func(r *CreateRequest) { r.IdempotencyKey = "" },
			"Zero Amount":    func(r *CreateRequest) { r.Amount = models.NewAmount(0) },
			"Negative":       func(r *CreateRequest) { r.Amount = models.NewAmount(-5) },
			"Self Transfer":  func(r *CreateRequest) { r.ReceiverID = "alice" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				req := valid
				mutate(&req)
				_, err := f.ledger.CreateTransaction(ctx, req)
				assert.True(t, apperrors.Is(err, apperrors.InvalidInput), "got %v", err)
			})
		}
	})

	t.Run("Unknown Key", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500, "bob": 0})

		_, err := f.ledger.CreateTransaction(ctx, CreateRequest{
			PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(1), IdempotencyKey: "nope", Requester: "alice",
		})

		assert.True(t, apperrors.Is(err, apperrors.PreconditionFailed))
	})

	t.Run("Someone Else's Key", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500, "bob": 0})
		bobsKey := f.key(t, "bob")

		_, err := f.ledger.CreateTransaction(ctx, CreateRequest{
			PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(1), IdempotencyKey: bobsKey, Requester: "alice",
		})

		assert.True(t, apperrors.Is(err, apperrors.PreconditionFailed))
		assert.Equal(t, "500", f.balance(t, "alice"))
	})

	t.Run("Key Reused", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500, "bob": 0})
		key := f.key(t, "alice")
		req := CreateRequest{PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(100), IdempotencyKey: key, Requester: "alice"}

		_, err := f.ledger.CreateTransaction(ctx, req)
		require.NoError(t, err)
		_, err = f.ledger.CreateTransaction(ctx, req)

		assert.True(t, apperrors.Is(err, apperrors.Conflict))
		assert.Equal(t, "400", f.balance(t, "alice"))
	})

	t.Run("Missing Receiver", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 500})
		key := f.key(t, "alice")

		_, err := f.ledger.CreateTransaction(ctx, CreateRequest{
			PayerID: "alice", ReceiverID: "ghost", Amount: models.NewAmount(1), IdempotencyKey: key, Requester: "alice",
		})

		assert.True(t, apperrors.Is(err, apperrors.NotFound))
	})

	t.Run("Insufficient Funds", func(t *testing.T) {
		f := newFixture(t, map[string]int64{"alice": 100, "bob": 0})
		key := f.key(t, "alice")

		_, err := f.ledger.CreateTransaction(ctx, CreateRequest{
			PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(300), IdempotencyKey: key, Requester: "alice",
		})

		assert.True(t, apperrors.Is(err, apperrors.PreconditionFailed))
		assert.Equal(t, "100", f.balance(t, "alice"))
		k, _ := f.keys.Lookup(ctx, key)
		assert.Equal(t, models.KeyActive, k.Status)
	})
}

func TestCreateTransactionStoreFailures(t *testing.T) {
	ctx := context.Background()
	key := &models.IdempotencyKey{Key: "k1", Owner: "alice", Status: models.KeyActive}
	alice := &models.Account{Id: "alice", Balance: models.NewAmount(500)}
	bob := &models.Account{Id: "bob", Balance: models.NewAmount(0)}
	req := CreateRequest{PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(100), IdempotencyKey: "k1", Requester: "alice"}

	setup := func() *mocks.Storage {
		store := new(mocks.Storage)
		store.On("GetIdempotencyKey", mock.Anything, "k1").Return(key, nil)
		store.On("GetAccount", mock.Anything, "alice").Return(alice, nil)
		store.On("GetAccount", mock.Anything, "bob").Return(bob, nil)
		return store
	}

	t.Run("Timeout", func(t *testing.T) {
		store := setup()
		store.On("CreateTransaction", mock.Anything, mock.Anything, "alice").
			Return(func(ctx context.Context, _ *models.Transaction, _ string) (*models.Transaction, error) {
				<-ctx.Done()
				return nil, fmt.Errorf("failed to execute transaction: %w", ctx.Err())
			}).Once()
		l := New(store, idempotency.New(store), 20*time.Millisecond)

		_, err := l.CreateTransaction(ctx, req)

		assert.Equal(t, apperrors.Internal, apperrors.KindOf(err))
		assert.True(t, apperrors.IsRetryable(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		store.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		store := setup()
		store.On("CreateTransaction", mock.Anything, mock.Anything, "alice").Return(nil, errors.New("throttled")).Once()
		l := New(store, idempotency.New(store), time.Second)

		_, err := l.CreateTransaction(ctx, req)

		assert.True(t, apperrors.IsRetryable(err))
		store.AssertExpectations(t)
	})

	t.Run("Key Store Unavailable", func(t *testing.T) {
		store := new(mocks.Storage)
		store.On("GetIdempotencyKey", mock.Anything, "k1").Return(nil, errors.New("connection reset")).Once()
		l := New(store, idempotency.New(store), time.Second)

		_, err := l.CreateTransaction(ctx, req)

		assert.Equal(t, apperrors.Internal, apperrors.KindOf(err))
		assert.True(t, apperrors.IsRetryable(err))
		store.AssertNotCalled(t, "GetAccount", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Unknown Key Through Lookup", func(t *testing.T) {
		store := new(mocks.Storage)
		store.On("GetIdempotencyKey", mock.Anything, "k1").
			Return(nil, fmt.Errorf("x: %w", storage.ErrIdempotencyKeyNotFound)).Once()
		l := New(store, idempotency.New(store), time.Second)

		_, err := l.CreateTransaction(ctx, req)

		assert.Equal(t, apperrors.PreconditionFailed, apperrors.KindOf(err))
		store.AssertExpectations(t)
	})
}

func TestExactlyOnceCreation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int64{"alice": 1000, "bob": 0})
	key := f.key(t, "alice")

	results := make([]error, 16)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = f.ledger.CreateTransaction(ctx, CreateRequest{
				PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(100), IdempotencyKey: key, Requester: "alice",
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperrors.Is(err, apperrors.Conflict), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, "900", f.balance(t, "alice"))

	txs, err := f.ledger.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]int64{"alice": 500, "bob": 500})

	_, err := f.ledger.CreateTransaction(ctx, CreateRequest{
		PayerID: "alice", ReceiverID: "bob", Amount: models.NewAmount(10), IdempotencyKey: f.key(t, "alice"), Requester: "alice",
	})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.ledger.CreateTransaction(ctx, CreateRequest{
		PayerID: "bob", ReceiverID: "alice", Amount: models.NewAmount(20), IdempotencyKey: f.key(t, "bob"), Requester: "bob",
	})
	require.NoError(t, err)

	summaries, err := f.ledger.ListByUser(ctx, "alice")

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, models.Received, summaries[0].Direction)
	assert.Equal(t, "bob", summaries[0].Counterparty)
	assert.Equal(t, "20", summaries[0].Amount.String())
	assert.Equal(t, models.Sent, summaries[1].Direction)
}

func TestFindByID(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.ledger.FindByID(context.Background(), "missing")

	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}
