package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func stringValue(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok, "expected string attribute, got %T", av)
	return s.Value
}

func TestTimeAV(t *testing.T) {
	t.Run("Sorts Like Time", func(t *testing.T) {
		whole := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
		half := whole.Add(500 * time.Millisecond)

		assert.Less(t, stringValue(t, timeAV(whole)), stringValue(t, timeAV(half)))
		assert.Len(t, stringValue(t, timeAV(half)), len(stringValue(t, timeAV(whole))))
	})

	t.Run("Decodes As Time", func(t *testing.T) {
		at := time.Date(2025, 3, 1, 12, 0, 5, 123000000, time.FixedZone("CET", 3600))

		var decoded time.Time
		require.NoError(t, attributevalue.Unmarshal(timeAV(at), &decoded))

		assert.True(t, at.Equal(decoded))
	})
}

func TestRangeQueriesUseSortableCutoff(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := newTestStore(mockClient)

	mockClient.On("Query", mock.Anything, mock.Anything).Return(&dynamodb.QueryOutput{}, nil).Twice()

	_, err := store.GetStuckTransactions(context.Background(), time.Minute)
	require.NoError(t, err)
	_, err = store.ListStaleIdempotencyKeys(context.Background(), time.Hour)
	require.NoError(t, err)

	require.Len(t, mockClient.Calls, 2)
	for _, call := range mockClient.Calls {
		in := call.Arguments.Get(1).(*dynamodb.QueryInput)
		c := stringValue(t, in.ExpressionAttributeValues[":cutoff"])
		_, err := time.Parse(sortableTimeLayout, c)
		assert.NoError(t, err, c)
		assert.Len(t, c, len(sortableTimeLayout)-len("Z07:00")+len("Z"))
	}
	mockClient.AssertExpectations(t)
}

func TestCreateTransactionStoresSortableCreatedAt(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	store := newTestStore(mockClient)

	var captured *dynamodb.TransactWriteItemsInput
	mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
		captured = in
		return true
	})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

	tx, err := store.CreateTransaction(context.Background(), &models.Transaction{
		Id: "tx-1", PayerId: "user1", ReceiverId: "user2", Amount: models.NewAmount(1), IdempotencyKey: "key-1",
	}, "user1")
	require.NoError(t, err)

	item := captured.TransactItems[createOpPutTransaction].Put.Item
	assert.Equal(t, tx.CreatedAt.Format(sortableTimeLayout), stringValue(t, item["created_at"]))
}
