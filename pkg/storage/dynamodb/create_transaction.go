package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/chris/escrow-transfers/pkg/storage"
)

// Positions of the items in the creation TransactWriteItems call.
const (
	createOpConsumeKey = iota
	createOpReleaseMarker
	createOpDebitPayer
	createOpCheckReceiver
	createOpPutTransaction
)

// CreateTransaction consumes the requester's idempotency key, debits the payer into escrow and
// stores the pending transaction in a single TransactWriteItems call.
// The caller assigns tx.Id; the store fills in status and timestamps.
func (s *Store) CreateTransaction(ctx context.Context, tx *models.Transaction, requester string) (*models.Transaction, error) {
	now := time.Now().UTC()
	tx.Status = models.PENDING
	tx.CreatedAt = now
	tx.UpdatedAt = now

	txAV, err := attributevalue.MarshalMap(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	setTimes(txAV, map[string]time.Time{"created_at": now, "updated_at": now})

	amountAV, err := attributevalue.Marshal(tx.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal amount: %w", err)
	}

	nowAV := timeAV(now)

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			createOpConsumeKey: {
				// Operation 1: Finish the idempotency key, only if it is still active and held by the requester.
				Update: &types.Update{
					TableName:           aws.String(s.IdempotencyTableName),
					Key:                 map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: tx.IdempotencyKey}},
					UpdateExpression:    aws.String("SET #status = :finished, transaction_id = :tx_id, finished_at = :now"),
					ConditionExpression: aws.String("#status = :active AND #owner = :owner"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
						"#owner":  "owner",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":finished": &types.AttributeValueMemberS{Value: string(models.KeyFinished)},
						":active":   &types.AttributeValueMemberS{Value: string(models.KeyActive)},
						":owner":    &types.AttributeValueMemberS{Value: requester},
						":tx_id":    &types.AttributeValueMemberS{Value: tx.Id},
						":now":      nowAV,
					},
				},
			},
			createOpReleaseMarker: {
				// Operation 2: Free the owner's active slot.
				Delete: &types.Delete{
					TableName: aws.String(s.IdempotencyTableName),
					Key:       map[string]types.AttributeValue{"key": &types.AttributeValueMemberS{Value: markerKey(requester)}},
				},
			},
			createOpDebitPayer: {
				// Operation 3: Move the amount out of the payer's balance.
				Update: &types.Update{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.PayerId}},
					UpdateExpression:    aws.String("SET balance = balance - :amount, version = version + :inc"),
					ConditionExpression: aws.String("attribute_exists(id) AND balance >= :amount"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount": amountAV,
						":inc":    &types.AttributeValueMemberN{Value: "1"},
					},
					ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
				},
			},
			createOpCheckReceiver: {
				// Operation 4: The receiver must exist.
				ConditionCheck: &types.ConditionCheck{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.ReceiverId}},
					ConditionExpression: aws.String("attribute_exists(id)"),
				},
			},
			createOpPutTransaction: {
				// Operation 5: Create the new transaction record.
				Put: &types.Put{
					TableName:           aws.String(s.TransactionsTableName),
					Item:                txAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			reasons := tce.CancellationReasons
			switch {
			case conditionFailed(reasons, createOpConsumeKey):
				return nil, fmt.Errorf("idempotency key %s: %w", tx.IdempotencyKey, storage.ErrIdempotencyKeyConsumed)
			case conditionFailed(reasons, createOpDebitPayer):
				if reasons[createOpDebitPayer].Item == nil {
					return nil, fmt.Errorf("payer %s: %w", tx.PayerId, storage.ErrAccountNotFound)
				}
				return nil, fmt.Errorf("payer %s: %w", tx.PayerId, storage.ErrInsufficientFunds)
			case conditionFailed(reasons, createOpCheckReceiver):
				return nil, fmt.Errorf("receiver %s: %w", tx.ReceiverId, storage.ErrAccountNotFound)
			}
		}
		return nil, fmt.Errorf("failed to execute transaction: %w", err)
	}

	return tx, nil
}
