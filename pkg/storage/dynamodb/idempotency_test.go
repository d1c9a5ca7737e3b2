package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
	"github.com/chris/escrow-transfers/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateIdempotencyKey(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			marker := in.TransactItems[0].Put.Item
			return assert.ObjectsAreEqual(&types.AttributeValueMemberS{Value: "owner#alice"}, marker["key"]) &&
				assert.ObjectsAreEqual(&types.AttributeValueMemberS{Value: "k-1"}, marker["active_key"]) &&
				marker["owner"] == nil
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil).Once()

		key, err := store.CreateIdempotencyKey(context.Background(), &models.IdempotencyKey{Key: "k-1", Owner: "alice"})

		require.NoError(t, err)
		assert.Equal(t, models.KeyActive, key.Status)
		assert.False(t, key.CreatedAt.IsZero())
		mockClient.AssertExpectations(t)
	})

	t.Run("Active Key Exists", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, cancelled(0, 2, nil)).Once()

		_, err := store.CreateIdempotencyKey(context.Background(), &models.IdempotencyKey{Key: "k-2", Owner: "alice"})

		assert.ErrorIs(t, err, storage.ErrActiveKeyExists)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		_, err := store.CreateIdempotencyKey(context.Background(), &models.IdempotencyKey{Key: "k-3", Owner: "alice"})

		assert.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrActiveKeyExists)
		mockClient.AssertExpectations(t)
	})
}

func TestFindIdempotencyKey(t *testing.T) {
	active := models.IdempotencyKey{Key: "k-1", Owner: "alice", Status: models.KeyActive, CreatedAt: time.Now().UTC()}
	activeAV, _ := attributevalue.MarshalMap(active)
	markerAV, _ := attributevalue.MarshalMap(activeKeyMarker{Key: "owner#alice", ActiveKey: "k-1"})

	getKey := func(key string) interface{} {
		return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return assert.ObjectsAreEqual(&types.AttributeValueMemberS{Value: key}, in.Key["key"])
		})
	}

	t.Run("Active Through Marker", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, getKey("owner#alice")).Return(&dynamodb.GetItemOutput{Item: markerAV}, nil).Once()
		mockClient.On("GetItem", mock.Anything, getKey("k-1")).Return(&dynamodb.GetItemOutput{Item: activeAV}, nil).Once()

		key, err := store.FindIdempotencyKey(context.Background(), "alice", models.KeyActive)

		require.NoError(t, err)
		assert.Equal(t, "k-1", key.Key)
		mockClient.AssertExpectations(t)
	})

	t.Run("No Active Key", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, getKey("owner#alice")).Return(&dynamodb.GetItemOutput{}, nil).Once()

		_, err := store.FindIdempotencyKey(context.Background(), "alice", models.KeyActive)

		assert.ErrorIs(t, err, storage.ErrIdempotencyKeyNotFound)
		mockClient.AssertExpectations(t)
	})

	t.Run("Finished Through Index", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		finished := active
		finished.Status = models.KeyFinished
		finishedAV, _ := attributevalue.MarshalMap(finished)
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == ownerStatusIndex
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{finishedAV}}, nil).Once()

		key, err := store.FindIdempotencyKey(context.Background(), "alice", models.KeyFinished)

		require.NoError(t, err)
		assert.Equal(t, models.KeyFinished, key.Status)
		mockClient.AssertExpectations(t)
	})
}

func TestGetIdempotencyKey(t *testing.T) {
	t.Run("Marker Is Not A Key", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		_, err := store.GetIdempotencyKey(context.Background(), "owner#alice")

		assert.ErrorIs(t, err, storage.ErrIdempotencyKeyNotFound)
		mockClient.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := newTestStore(mockClient)

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

		_, err := store.GetIdempotencyKey(context.Background(), "nope")

		assert.True(t, storage.IsNotFound(err))
		mockClient.AssertExpectations(t)
	})
}
