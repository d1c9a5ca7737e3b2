package eventlog

import (
	"context"
	"errors"
	"testing"

	"github.com/chris/escrow-transfers/pkg/metrics"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage/memory"
	"github.com/chris/escrow-transfers/pkg/storage/mocks"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAppend(t *testing.T) {
	ctx := context.Background()

	t.Run("Insertion Order", func(t *testing.T) {
		l := New(memory.New())

		l.Append(ctx, models.SettlementEvent{TransactionId: "t1", Outcome: models.OutcomeSuccess})
		l.Append(ctx, models.SettlementEvent{TransactionId: "t2", Outcome: models.OutcomeError})
		l.Append(ctx, models.SettlementEvent{TransactionId: "t1", Outcome: models.OutcomeNoop})

		all, err := l.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, models.OutcomeError, all[1].Outcome)

		t1, err := l.List(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, t1, 2)
		assert.Equal(t, models.OutcomeSuccess, t1[0].Outcome)
		assert.Equal(t, models.OutcomeNoop, t1[1].Outcome)
	})

	t.Run("Storage Error Is Swallowed", func(t *testing.T) {
		store := new(mocks.Storage)
		store.On("AppendSettlementEvent", mock.Anything, mock.Anything).Return(errors.New("unavailable")).Once()
		l := New(store)
		before := testutil.ToFloat64(metrics.EventAppendFailures)

		assert.NotPanics(t, func() {
			l.Append(ctx, models.SettlementEvent{TransactionId: "t1", Outcome: models.OutcomeSuccess})
		})

		assert.Equal(t, before+1, testutil.ToFloat64(metrics.EventAppendFailures))
		store.AssertExpectations(t)
	})
}

func TestList(t *testing.T) {
	store := new(mocks.Storage)
	store.On("ListSettlementEvents", mock.Anything, "t1").Return(nil, errors.New("unavailable")).Once()

	_, err := New(store).List(context.Background(), "t1")

	assert.ErrorContains(t, err, "failed to list settlement events")
	store.AssertExpectations(t)
}

func TestOutcomeMetricLabels(t *testing.T) {
	ctx := context.Background()
	l := New(memory.New())

	l.Append(ctx, models.SettlementEvent{TransactionId: "t1", ReportedStatus: "x1", Outcome: models.OutcomeError})
	series := testutil.CollectAndCount(metrics.SettlementOutcomes)
	unknown := testutil.ToFloat64(metrics.SettlementOutcomes.WithLabelValues("unknown", "error"))

	l.Append(ctx, models.SettlementEvent{TransactionId: "t1", ReportedStatus: "x2", Outcome: models.OutcomeError})
	l.Append(ctx, models.SettlementEvent{TransactionId: "t1", ReportedStatus: "Approved!", Outcome: models.OutcomeError})

	assert.Equal(t, series, testutil.CollectAndCount(metrics.SettlementOutcomes))
	assert.Equal(t, unknown+2, testutil.ToFloat64(metrics.SettlementOutcomes.WithLabelValues("unknown", "error")))

	events, err := l.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "x2", events[1].ReportedStatus)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "approved", statusLabel("approved"))
	assert.Equal(t, "failed", statusLabel("failed"))
	assert.Equal(t, "unknown", statusLabel("pending"))
	assert.Equal(t, "unknown", statusLabel(""))
}
