package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAppendSettlementEvent(t *testing.T) {
	t.Run("Assigns Ordered Ids", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return assert.ObjectsAreEqual(&types.AttributeValueMemberS{Value: settlementEventsPK}, in.Item["gsi1pk"])
		})).Return(&dynamodb.PutItemOutput{}, nil).Twice()

		first := &models.SettlementEvent{TransactionId: "tx-1", ReportedStatus: "approved", Outcome: models.OutcomeSuccess}
		second := &models.SettlementEvent{TransactionId: "tx-1", ReportedStatus: "approved", Outcome: models.OutcomeNoop}

		require.NoError(t, store.AppendSettlementEvent(context.Background(), first))
		require.NoError(t, store.AppendSettlementEvent(context.Background(), second))

		assert.NotEmpty(t, first.EventId)
		assert.Less(t, first.EventId, second.EventId)
		assert.False(t, first.Timestamp.IsZero())
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("put failed")).Once()

		err := store.AppendSettlementEvent(context.Background(), &models.SettlementEvent{TransactionId: "tx-1"})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to put settlement event")
		mockClient.AssertExpectations(t)
	})
}

func TestListSettlementEvents(t *testing.T) {
	event := models.SettlementEvent{EventId: "e-1", TransactionId: "tx-1", Outcome: models.OutcomeSuccess}
	eventAV, _ := attributevalue.MarshalMap(event)

	t.Run("Whole Log", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == eventsGSI && *in.ScanIndexForward
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{eventAV}}, nil).Once()

		events, err := store.ListSettlementEvents(context.Background(), "")

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "e-1", events[0].EventId)
		mockClient.AssertExpectations(t)
	})

	t.Run("Filtered By Transaction", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == eventsTransactionGSI
		})).Return(&dynamodb.QueryOutput{}, nil).Once()

		events, err := store.ListSettlementEvents(context.Background(), "tx-9")

		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NotNil(t, events)
		mockClient.AssertExpectations(t)
	})
}
