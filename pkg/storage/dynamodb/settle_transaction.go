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

const (
	settleOpTransition = iota
	settleOpCredit
)

// SettleTransaction moves a pending transaction to its terminal status and credits the escrowed
// amount to the beneficiary. Both writes go in one TransactWriteItems call, and the status
// change is conditional on the transaction still being pending, so a duplicate or concurrent
// settlement cancels the whole call and credits nothing.
func (s *Store) SettleTransaction(ctx context.Context, tx *models.Transaction, status models.TransactionStatus, beneficiaryID string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("cannot settle transaction %s to %q", tx.Id, status)
	}

	amountAV, err := attributevalue.Marshal(tx.Amount)
	if err != nil {
		return fmt.Errorf("failed to marshal amount for settlement: %w", err)
	}
	nowAV := timeAV(time.Now())

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			settleOpTransition: {
				// Operation 1: Leave pending. Fails if anyone else already did.
				Update: &types.Update{
					TableName:           aws.String(s.TransactionsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: tx.Id}},
					UpdateExpression:    aws.String("SET #status = :status, updated_at = :now"),
					ConditionExpression: aws.String("#status = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":status":  &types.AttributeValueMemberS{Value: string(status)},
						":pending": &types.AttributeValueMemberS{Value: string(models.PENDING)},
						":now":     nowAV,
					},
				},
			},
			settleOpCredit: {
				// Operation 2: Release the escrow to the beneficiary.
				Update: &types.Update{
					TableName:           aws.String(s.AccountsTableName),
					Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: beneficiaryID}},
					UpdateExpression:    aws.String("SET balance = balance + :amount, version = version + :inc"),
					ConditionExpression: aws.String("attribute_exists(id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":amount": amountAV,
						":inc":    &types.AttributeValueMemberN{Value: "1"},
					},
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			switch {
			case conditionFailed(tce.CancellationReasons, settleOpTransition):
				return fmt.Errorf("transaction %s: %w", tx.Id, storage.ErrTransactionAlreadySettled)
			case conditionFailed(tce.CancellationReasons, settleOpCredit):
				return fmt.Errorf("beneficiary %s: %w", beneficiaryID, storage.ErrAccountNotFound)
			}
		}
		return fmt.Errorf("failed to execute settlement transaction: %w", err)
	}

	return nil
}
