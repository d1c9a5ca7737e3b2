package storage

import "errors"

// ErrAccountNotFound is returned when an account does not exist.
var ErrAccountNotFound = errors.New("account not found")

// ErrTransactionNotFound is returned when a transaction does not exist.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrIdempotencyKeyNotFound is returned when an idempotency key does not exist.
var ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

// ErrInsufficientFunds is returned when an account has an insufficient balance for a transaction.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrIdempotencyKeyConsumed is returned when the key is no longer active, or not owned by the requester,
// at the moment the transaction is written.
var ErrIdempotencyKeyConsumed = errors.New("idempotency key already consumed")

// ErrActiveKeyExists is returned when an owner already holds an active idempotency key.
var ErrActiveKeyExists = errors.New("owner already has an active idempotency key")

// ErrTransactionAlreadySettled is returned when a transaction is no longer pending at settlement time.
var ErrTransactionAlreadySettled = errors.New("transaction already settled")

// IsNotFound reports whether err means that a record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrIdempotencyKeyNotFound)
}
