package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseGateway looks charges up by id; the charge id is the payment reference.
type OmiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (*OmiseGateway, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	c.SetDebug(false)
	return &OmiseGateway{client: c}, nil
}

func (g *OmiseGateway) Verify(ctx context.Context, reference string) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := &omise.Charge{}
	if err := g.client.Do(ch, &operations.RetrieveCharge{ChargeID: reference}); err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", reference, err)
	}
	return chargeToTransaction(reference, ch), nil
}

func chargeToTransaction(reference string, ch *omise.Charge) *Transaction {
	tx := &Transaction{
		Reference:     reference,
		TransactionID: ch.ID,
		Amount:        ch.Amount,
		Currency:      strings.ToUpper(ch.Currency),
		Status:        mapChargeStatus(string(ch.Status)),
	}
	if ch.FailureMessage != nil {
		tx.FailureReason = *ch.FailureMessage
	} else if ch.FailureCode != nil {
		tx.FailureReason = *ch.FailureCode
	}
	return tx
}

// Omise statuses: pending / successful / failed / reversed / expired.
func mapChargeStatus(s string) Status {
	switch s {
	case "successful":
		return StatusSuccess
	case "pending":
		return StatusPending
	default:
		return StatusFailed
	}
}
