package models

import (
	"time"
)

// TransactionStatus defines the possible states of a transaction.
type TransactionStatus string

const (
	PENDING  TransactionStatus = "pending"
	APPROVED TransactionStatus = "approved"
	FAILED   TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is permitted from s.
func (s TransactionStatus) IsTerminal() bool {
	return s == APPROVED || s == FAILED
}

// KeyStatus defines the lifecycle of an idempotency key.
type KeyStatus string

const (
	KeyActive   KeyStatus = "active"
	KeyFinished KeyStatus = "finished"
)

// Account is a user's balance as held by the account store.
type Account struct {
	Id        string    `json:"id" dynamodbav:"id"`
	Balance   Amount    `json:"balance" dynamodbav:"balance"`
	Version   int64     `json:"version" dynamodbav:"version"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// IdempotencyKey is a single-use token binding one creation request to its requester.
type IdempotencyKey struct {
	Key           string     `json:"key" dynamodbav:"key"`
	Owner         string     `json:"owner" dynamodbav:"owner"`
	Status        KeyStatus  `json:"status" dynamodbav:"status"`
	TransactionId string     `json:"transaction_id,omitempty" dynamodbav:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" dynamodbav:"created_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty" dynamodbav:"finished_at,omitempty"`
}

// Transaction represents the internal domain model for a transaction.
// It includes dynamodbav tags for marshalling.
type Transaction struct {
	Id             string            `dynamodbav:"id"`
	PayerId        string            `dynamodbav:"payer_id"`
	ReceiverId     string            `dynamodbav:"receiver_id"`
	Amount         Amount            `dynamodbav:"amount"`
	Status         TransactionStatus `dynamodbav:"status"`
	IdempotencyKey string            `dynamodbav:"idempotency_key"`
	CreatedAt      time.Time         `dynamodbav:"created_at"`
	UpdatedAt      time.Time         `dynamodbav:"updated_at"`
}

// EventOutcome classifies what a settlement notification did.
type EventOutcome string

const (
	OutcomeSuccess EventOutcome = "success"
	OutcomeNoop    EventOutcome = "noop"
	OutcomeError   EventOutcome = "error"
)

// SettlementEvent is the audit record of one inbound settlement notification.
// EventId is the append-only sequence id; ordering by it is insertion order.
type SettlementEvent struct {
	EventId        string       `json:"event_id" dynamodbav:"event_id"`
	TransactionId  string       `json:"transaction_id" dynamodbav:"transaction_id"`
	ReportedStatus string       `json:"reported_status" dynamodbav:"reported_status"`
	Outcome        EventOutcome `json:"outcome" dynamodbav:"outcome"`
	Detail         string       `json:"detail" dynamodbav:"detail"`
	Timestamp      time.Time    `json:"timestamp" dynamodbav:"timestamp"`
	GSI1PK         string       `json:"-" dynamodbav:"gsi1pk"`
}

// Direction tells whether a user sent or received a transaction.
type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

// TransactionSummary is a transaction seen from one participant's side.
type TransactionSummary struct {
	TransactionId string
	Direction     Direction
	Counterparty  string
	Amount        Amount
	Status        TransactionStatus
	CreatedAt     time.Time
}
