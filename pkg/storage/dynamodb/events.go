package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/google/uuid"
)

const (
	// Every event shares one partition key on this index so a single query returns the whole log.
	settlementEventsPK   = "SETTLEMENT_EVENTS"
	eventsGSI            = "gsi1pk-event_id-index"
	eventsTransactionGSI = "transaction_id-event_id-index"
)

// AppendSettlementEvent stores event under a fresh UUIDv7. Version 7 ids sort by creation time,
// so ordering by event_id gives insertion order.
func (s *Store) AppendSettlementEvent(ctx context.Context, event *models.SettlementEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}
	event.EventId = id.String()
	event.GSI1PK = settlementEventsPK
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	eventAV, err := attributevalue.MarshalMap(event)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}
	setTimes(eventAV, map[string]time.Time{"timestamp": event.Timestamp})

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.EventsTableName),
		Item:                eventAV,
		ConditionExpression: aws.String("attribute_not_exists(event_id)"),
	}

	if _, err := s.Client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put settlement event: %w", err)
	}

	return nil
}

// ListSettlementEvents returns the settlement events in insertion order.
// An empty transactionID returns the whole log.
func (s *Store) ListSettlementEvents(ctx context.Context, transactionID string) ([]models.SettlementEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.EventsTableName),
		IndexName:              aws.String(eventsGSI),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: settlementEventsPK},
		},
		ScanIndexForward: aws.Bool(true),
	}
	if transactionID != "" {
		input.IndexName = aws.String(eventsTransactionGSI)
		input.KeyConditionExpression = aws.String("transaction_id = :tx_id")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":tx_id": &types.AttributeValueMemberS{Value: transactionID},
		}
	}

	events := []models.SettlementEvent{}
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for settlement events: %w", err)
		}

		var page []models.SettlementEvent
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settlement events: %w", err)
		}
		events = append(events, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return events, nil
}
