package services

import (
	"context"
	"net/url"
	"testing"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/models"
	"paywall_backend/internal/services/click"
	"paywall_backend/pkg/apperrors"
	"paywall_backend/test/helpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPaymentConfig() PaymentConfig {
	return PaymentConfig{
		Amount: decimal.RequireFromString("50000"),
		Link: click.LinkConfig{
			ServiceID:  "12345",
			MerchantID: "678",
			ReturnURL:  "https://t.me/paywall_bot",
		},
	}
}

func TestCreatePendingTransaction(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.deps, testPaymentConfig())

	resp, err := svc.CreatePendingTransaction(context.Background(), f.db, &dto.CreateTransactionRequest{
		PrincipalRef: "42",
		Username:     "alice",
	})

	require.NoError(t, err)
	assert.Len(t, resp.TransactionParam, 32)
	assert.True(t, resp.Amount.Equal(decimal.RequireFromString("50000")))

	link, err := url.Parse(resp.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "my.click.uz", link.Host)
	assert.Equal(t, resp.TransactionParam, link.Query().Get("transaction_param"))
	assert.Equal(t, "12345", link.Query().Get("service_id"))

	stored := helpers.ReloadTransaction(t, f.db, resp.TransactionID)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
	assert.Equal(t, []models.EventKind{models.EventCreated}, helpers.EventKinds(t, f.db, resp.TransactionID))

	// Второй платеж того же пользователя получает новый param
	second, err := svc.CreatePendingTransaction(context.Background(), f.db, &dto.CreateTransactionRequest{PrincipalRef: "42"})
	require.NoError(t, err)
	assert.NotEqual(t, resp.TransactionParam, second.TransactionParam)
	assert.Equal(t, stored.PrincipalID, helpers.ReloadTransaction(t, f.db, second.TransactionID).PrincipalID)
}

func TestListPendingAndStats(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.deps, testPaymentConfig())
	protocol := NewProtocolService(f.deps, f.signer)

	_, paid := f.seed(t, "42", "paid-1", "50000")
	p := helpers.CreatePrincipal(t, f.db, "43", false, nil)
	helpers.CreateTransaction(t, f.db, p.ID, "pending-1", "50000")
	helpers.CreateTransaction(t, f.db, p.ID, "pending-2", "50000")

	_, err := protocol.Complete(context.Background(), f.db, f.clickRequest(click.ActionComplete, "paid-1", paid.ID, "50000"))
	require.NoError(t, err)

	list, err := svc.ListPending(context.Background(), f.db, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.PageSize)
	assert.Len(t, list.Items, 2)

	stats, err := svc.GetStats(context.Background(), f.db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(1), stats.Paid)
	assert.Equal(t, int64(1), stats.PaidPrincipals)
	assert.True(t, stats.Revenue.Equal(decimal.RequireFromString("50000")), stats.Revenue.String())
}

func TestGetTransactionDetails(t *testing.T) {
	f := newFixture(t)
	svc := NewPaymentService(f.deps, testPaymentConfig())
	protocol := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	_, err := protocol.Complete(context.Background(), f.db, f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000"))
	require.NoError(t, err)

	details, err := svc.GetTransactionDetails(context.Background(), f.db, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, details.Transaction.Status)
	require.Len(t, details.Events, 1)

	payload, err := details.Events[0].Decode()
	require.NoError(t, err)
	paid, ok := payload.(*models.PaidPayload)
	require.True(t, ok)
	assert.Equal(t, SourceClickComplete, paid.Source)
	assert.Equal(t, "2210", paid.GatewayTransactionID)

	_, err = svc.GetTransactionDetails(context.Background(), f.db, tx.ID+1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
