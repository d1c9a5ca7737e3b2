package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
)

const (
	ownerStatusIndex     = "owner-status-index"
	keyStatusCreatedGSI  = "status-created_at-index"
	activeKeyMarkerScope = "owner#"
)

// activeKeyMarker lives in the idempotency table next to the keys. Its primary key is derived
// from the owner, so a conditional put on it admits at most one active key per owner.
// It carries neither owner nor status, which keeps it out of both secondary indexes.
type activeKeyMarker struct {
	Key       string `dynamodbav:"key"`
	ActiveKey string `dynamodbav:"active_key"`
}

func markerKey(owner string) string {
	return activeKeyMarkerScope + owner
}

// GetIdempotencyKey retrieves an idempotency key by its value.
func (s *Store) GetIdempotencyKey(ctx context.Context, key string) (*models.IdempotencyKey, error) {
	if strings.HasPrefix(key, activeKeyMarkerScope) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, storage.ErrIdempotencyKeyNotFound)
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.IdempotencyTableName),
		Key:            map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: key}},
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("idempotency key %s: %w", key, storage.ErrIdempotencyKeyNotFound)
	}

	var k models.IdempotencyKey
	if err := attributevalue.UnmarshalMap(result.Item, &k); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}

	return &k, nil
}

// FindIdempotencyKey retrieves a key of the given status held by owner.
// Active keys are resolved through the owner's marker item with a consistent read;
// finished keys go through the owner-status index.
func (s *Store) FindIdempotencyKey(ctx context.Context, owner string, status models.KeyStatus) (*models.IdempotencyKey, error) {
	if status == models.KeyActive {
		input := &dynamodb.GetItemInput{
			TableName:      aws.String(s.IdempotencyTableName),
			Key:            map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: markerKey(owner)}},
			ConsistentRead: aws.Bool(true),
		}

		result, err := s.Client.GetItem(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to get active key marker from DynamoDB: %w", err)
		}
		if result.Item == nil {
			return nil, fmt.Errorf("active key for %s: %w", owner, storage.ErrIdempotencyKeyNotFound)
		}

		var marker activeKeyMarker
		if err := attributevalue.UnmarshalMap(result.Item, &marker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal active key marker: %w", err)
		}
		return s.GetIdempotencyKey(ctx, marker.ActiveKey)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.IdempotencyTableName),
		IndexName:              aws.String(ownerStatusIndex),
		KeyConditionExpression: aws.String("#owner = :owner AND #status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#owner":  "owner",
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner":  &types.AttributeValueMemberS{Value: owner},
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		Limit: aws.Int32(1),
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency keys by owner: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, fmt.Errorf("%s key for %s: %w", status, owner, storage.ErrIdempotencyKeyNotFound)
	}

	var k models.IdempotencyKey
	if err := attributevalue.UnmarshalMap(result.Items[0], &k); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}

	return &k, nil
}

// CreateIdempotencyKey writes the key and the owner's active-key marker in one transaction.
func (s *Store) CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (*models.IdempotencyKey, error) {
	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}
	key.Status = models.KeyActive

	slog.Log(ctx, slog.LevelDebug, "creating idempotency key", "owner", key.Owner)

	keyAV, err := attributevalue.MarshalMap(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}
	setTimes(keyAV, map[string]time.Time{"created_at": key.CreatedAt})
	markerAV, err := attributevalue.MarshalMap(activeKeyMarker{Key: markerKey(key.Owner), ActiveKey: key.Key})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal active key marker: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Claim the owner's active slot.
				Put: &types.Put{
					TableName:                aws.String(s.IdempotencyTableName),
					Item:                     markerAV,
					ConditionExpression:      aws.String("attribute_not_exists(#key)"),
					ExpressionAttributeNames: map[string]string{"#key": "key"},
				},
			},
			{
				// Operation 2: Create the key itself.
				Put: &types.Put{
					TableName:                aws.String(s.IdempotencyTableName),
					Item:                     keyAV,
					ConditionExpression:      aws.String("attribute_not_exists(#key)"),
					ExpressionAttributeNames: map[string]string{"#key": "key"},
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && conditionFailed(tce.CancellationReasons, 0) {
			return nil, fmt.Errorf("owner %s: %w", key.Owner, storage.ErrActiveKeyExists)
		}
		return nil, fmt.Errorf("failed to create idempotency key: %w", err)
	}

	return key, nil
}

// ListStaleIdempotencyKeys retrieves active keys older than maxAge.
func (s *Store) ListStaleIdempotencyKeys(ctx context.Context, maxAge time.Duration) ([]models.IdempotencyKey, error) {
	cutoffAV := timeAV(time.Now().Add(-maxAge))

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.IdempotencyTableName),
		IndexName:              aws.String(keyStatusCreatedGSI),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.KeyActive)},
			":cutoff": cutoffAV,
		},
	}

	var keys []models.IdempotencyKey
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for stale idempotency keys: %w", err)
		}

		var page []models.IdempotencyKey
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal idempotency keys: %w", err)
		}
		keys = append(keys, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return keys, nil
}
