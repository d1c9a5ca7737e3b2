package memory

import (
	"context"
	"testing"
	"time"

	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, balances map[string]int64) {
	t.Helper()
	for id, balance := range balances {
		_, err := s.CreateAccount(context.Background(), &models.Account{Id: id, Balance: models.NewAmount(balance)})
		require.NoError(t, err)
	}
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		s := New()
		seed(t, s, map[string]int64{"alice": 500, "bob": 0})
		_, err := s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", Owner: "alice"})
		require.NoError(t, err)

		tx, err := s.CreateTransaction(ctx, &models.Transaction{Id: "t1", PayerId: "alice", ReceiverId: "bob", Amount: models.NewAmount(300), IdempotencyKey: "k1"}, "alice")
		require.NoError(t, err)
		assert.Equal(t, models.PENDING, tx.Status)

		payer, _ := s.GetAccount(ctx, "alice")
		assert.Equal(t, "200", payer.Balance.String())
		key, _ := s.GetIdempotencyKey(ctx, "k1")
		assert.Equal(t, models.KeyFinished, key.Status)
		assert.Equal(t, "t1", key.TransactionId)
		_, err = s.FindIdempotencyKey(ctx, "alice", models.KeyActive)
		assert.ErrorIs(t, err, storage.ErrIdempotencyKeyNotFound)
	})

	t.Run("Insufficient Funds Changes Nothing", func(t *testing.T) {
		s := New()
		seed(t, s, map[string]int64{"alice": 100, "bob": 0})
		_, err := s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", Owner: "alice"})
		require.NoError(t, err)

		_, err = s.CreateTransaction(ctx, &models.Transaction{Id: "t1", PayerId: "alice", ReceiverId: "bob", Amount: models.NewAmount(300), IdempotencyKey: "k1"}, "alice")
		assert.ErrorIs(t, err, storage.ErrInsufficientFunds)

		payer, _ := s.GetAccount(ctx, "alice")
		assert.Equal(t, "100", payer.Balance.String())
		key, _ := s.GetIdempotencyKey(ctx, "k1")
		assert.Equal(t, models.KeyActive, key.Status)
		_, err = s.GetTransaction(ctx, "t1")
		assert.ErrorIs(t, err, storage.ErrTransactionNotFound)
	})

	t.Run("Foreign Key", func(t *testing.T) {
		s := New()
		seed(t, s, map[string]int64{"alice": 100, "bob": 0})
		_, err := s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", Owner: "bob"})
		require.NoError(t, err)

		_, err = s.CreateTransaction(ctx, &models.Transaction{Id: "t1", PayerId: "alice", ReceiverId: "bob", Amount: models.NewAmount(1), IdempotencyKey: "k1"}, "alice")
		assert.ErrorIs(t, err, storage.ErrIdempotencyKeyConsumed)
	})
}

func TestSettleTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	seed(t, s, map[string]int64{"alice": 500, "bob": 0})
	_, err := s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", Owner: "alice"})
	require.NoError(t, err)
	tx, err := s.CreateTransaction(ctx, &models.Transaction{Id: "t1", PayerId: "alice", ReceiverId: "bob", Amount: models.NewAmount(300), IdempotencyKey: "k1"}, "alice")
	require.NoError(t, err)

	require.NoError(t, s.SettleTransaction(ctx, tx, models.APPROVED, "bob"))
	err = s.SettleTransaction(ctx, tx, models.FAILED, "alice")
	assert.ErrorIs(t, err, storage.ErrTransactionAlreadySettled)

	bob, _ := s.GetAccount(ctx, "bob")
	alice, _ := s.GetAccount(ctx, "alice")
	assert.Equal(t, "300", bob.Balance.String())
	assert.Equal(t, "200", alice.Balance.String())
}

func TestActiveKeys(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	_, err := s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k1", Owner: "alice"})
	require.NoError(t, err)
	_, err = s.CreateIdempotencyKey(ctx, &models.IdempotencyKey{Key: "k2", Owner: "alice"})
	assert.ErrorIs(t, err, storage.ErrActiveKeyExists)

	s.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }
	stale, err := s.ListStaleIdempotencyKeys(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "k1", stale[0].Key)
}

func TestSettlementEvents(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"t1", "t2", "t1"} {
		require.NoError(t, s.AppendSettlementEvent(ctx, &models.SettlementEvent{TransactionId: id}))
	}

	all, err := s.ListSettlementEvents(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{all[0].EventId, all[1].EventId, all[2].EventId})

	t1, err := s.ListSettlementEvents(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, t1, 2)
}
