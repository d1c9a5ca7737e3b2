package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/chris/escrow-transfers/pkg/models"
	"github.com/sony/gobreaker"
)

// SQSAPI is the subset of the SQS client the scheduler uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

const (
	breakerConsecutiveFailures = 5
	breakerOpenTimeout         = 30 * time.Second
)

// SQSScheduler implements the Scheduler interface using AWS SQS.
// Sends go through a circuit breaker that opens after consecutive failures.
type SQSScheduler struct {
	Client   SQSAPI
	QueueURL string
	breaker  *gobreaker.CircuitBreaker
}

// NewSQSScheduler creates a new SQSScheduler.
func NewSQSScheduler(client SQSAPI, queueURL string) *SQSScheduler {
	return &SQSScheduler{
		Client:   client,
		QueueURL: queueURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "sqs-settlement-queue",
			Timeout: breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

// Make sure we conform to the interface
var _ Scheduler = (*SQSScheduler)(nil)

// ScheduleSettlement sends the transaction to the gateway's SQS queue.
func (s *SQSScheduler) ScheduleSettlement(ctx context.Context, tx *models.Transaction) error {
	body, err := json.Marshal(NewSettlementRequest(tx))
	if err != nil {
		return fmt.Errorf("failed to marshal settlement request for SQS: %w", err)
	}

	_, err = s.breaker.Execute(func() (interface{}, error) {
		return s.Client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(s.QueueURL),
			MessageBody: aws.String(string(body)),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	return nil
}
