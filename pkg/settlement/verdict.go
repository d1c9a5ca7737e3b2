package settlement

import (
	"strings"

	"github.com/chris/escrow-transfers/pkg/apperrors"
	"github.com/chris/escrow-transfers/pkg/models"
)

// Verdict is the gateway's final decision on a pending transaction.
// The set is closed: only Approved and Failed implement it.
type Verdict interface {
	Status() models.TransactionStatus
	sealed()
}

// Approved releases the escrow to the receiver.
type Approved struct{}

// Failed refunds the escrow to the payer.
type Failed struct{}

func (Approved) Status() models.TransactionStatus { return models.APPROVED }
func (Failed) Status() models.TransactionStatus   { return models.FAILED }

func (Approved) sealed() {}
func (Failed) sealed()   {}

// ParseVerdict maps a reported gateway status onto a Verdict.
func ParseVerdict(status string) (Verdict, error) {
	switch models.TransactionStatus(strings.ToLower(strings.TrimSpace(status))) {
	case models.APPROVED:
		return Approved{}, nil
	case models.FAILED:
		return Failed{}, nil
	}
	return nil, apperrors.New(apperrors.InvalidInput, "unknown settlement status %q", status)
}

// beneficiary returns the account that receives the escrowed amount under v.
func beneficiary(v Verdict, tx *models.Transaction) string {
	switch v.(type) {
	case Approved:
		return tx.ReceiverId
	case Failed:
		return tx.PayerId
	}
	panic("settlement: unhandled verdict")
}
