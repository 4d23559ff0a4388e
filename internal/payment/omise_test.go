package payment

import (
	"testing"

	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
)

func TestChargeToTransaction(t *testing.T) {
	ch := &omise.Charge{Amount: 150000, Currency: "thb", Status: "successful"}
	ch.ID = "chrg_test_1"

	tx := chargeToTransaction("chrg_test_1", ch)
	assert.Equal(t, StatusSuccess, tx.Status)
	assert.Equal(t, "THB", tx.Currency)
	assert.Equal(t, int64(150000), tx.Amount)
	assert.Equal(t, "chrg_test_1", tx.TransactionID)

	msg := "insufficient funds"
	failed := &omise.Charge{Status: "failed", FailureMessage: &msg}
	tx = chargeToTransaction("chrg_test_2", failed)
	assert.Equal(t, StatusFailed, tx.Status)
	assert.Equal(t, msg, tx.FailureReason)
}

func TestMapChargeStatus(t *testing.T) {
	assert.Equal(t, StatusPending, mapChargeStatus("pending"))
	assert.Equal(t, StatusFailed, mapChargeStatus("reversed"))
	assert.Equal(t, StatusFailed, mapChargeStatus("expired"))
}
