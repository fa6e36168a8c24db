package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipal_AcceptsPaymentDated(t *testing.T) {
	revokedAt := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	after := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	revoked := &Principal{RevokedAt: &revokedAt}
	assert.False(t, revoked.AcceptsPaymentDated(&before), "платеж до отзыва не возвращает доступ")
	assert.True(t, revoked.AcceptsPaymentDated(&after))
	assert.True(t, revoked.AcceptsPaymentDated(&revokedAt), "платеж в момент отзыва принимается")
	assert.False(t, revoked.AcceptsPaymentDated(nil))

	fresh := &Principal{}
	assert.True(t, fresh.AcceptsPaymentDated(&before))
	assert.True(t, fresh.AcceptsPaymentDated(nil))
}

func TestTransaction_AmountMatchesIgnoresScale(t *testing.T) {
	tx := &Transaction{Amount: decimal.RequireFromString("50000")}

	assert.True(t, tx.AmountMatches(decimal.RequireFromString("50000.00")))
	assert.False(t, tx.AmountMatches(decimal.RequireFromString("40000")))
	assert.False(t, tx.AmountMatches(decimal.RequireFromString("50000.01")))
}

func TestPaymentEvent_DecodeRoundTripsVariant(t *testing.T) {
	txID := uint(7)
	event, err := NewPaymentEvent(&txID, 3, "webhook", ReasonAmountMismatch, AmountMismatchPayload{
		Expected: "50000",
		Received: "40000",
		Source:   "webhook",
	})
	require.NoError(t, err)
	assert.Equal(t, EventAmountMismatch, event.Kind)

	payload, err := event.Decode()
	require.NoError(t, err)

	mismatch, ok := payload.(*AmountMismatchPayload)
	require.True(t, ok, "ожидался AmountMismatchPayload, получен %T", payload)
	assert.Equal(t, "40000", mismatch.Received)
}

func TestPaymentEvent_DecodeUnknownKind(t *testing.T) {
	_, err := (&PaymentEvent{Kind: "mystery"}).Decode()
	assert.Error(t, err)
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.True(t, PaymentStatusPaid.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.True(t, PaymentStatusCancelled.IsTerminal())
}
