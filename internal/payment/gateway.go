// Package payment talks to the external payment gateway.
package payment

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("payment gateway not configured")
	ErrNotSuccessful = errors.New("payment not successful")
)

// Status of a transaction as reported by the gateway.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPending Status = "pending"
	StatusFailed  Status = "failed"
)

// Transaction is the gateway's view of a payment reference.
type Transaction struct {
	Reference     string
	TransactionID string
	Status        Status
	Amount        int64 // minor units
	Currency      string
	FailureReason string
}

// Gateway verifies a payment reference with the provider.
type Gateway interface {
	Verify(ctx context.Context, reference string) (*Transaction, error)
}

// Unconfigured fails every verification; wired when no gateway keys are set.
type Unconfigured struct{}

func (Unconfigured) Verify(context.Context, string) (*Transaction, error) {
	return nil, ErrNotConfigured
}
