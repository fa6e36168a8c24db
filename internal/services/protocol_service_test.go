package services

import (
	"context"
	"sync"
	"testing"

	"paywall_backend/internal/email"
	"paywall_backend/internal/models"
	"paywall_backend/internal/services/click"
	"paywall_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_PendingTransactionIsPrepared(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	got, err := svc.Prepare(context.Background(), f.db, f.clickRequest(click.ActionPrepare, "abc123", 0, "50000"))

	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
	assert.Empty(t, helpers.EventKinds(t, f.db, tx.ID), "PREPARE ничего не пишет в журнал")
}

func TestPrepare_BadSignatureNeverMutates(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	req := f.clickRequest(click.ActionPrepare, "abc123", 0, "50000")
	req.SignString = "0000"

	_, err := svc.Prepare(context.Background(), f.db, req)

	assert.Equal(t, click.ResultSignFailed, click.ResultFor(err))
	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
}

func TestPrepare_AmountMismatchKeepsPendingAndAlerts(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	got, err := svc.Prepare(context.Background(), f.db, f.clickRequest(click.ActionPrepare, "abc123", 0, "40000"))

	assert.Equal(t, click.ResultIncorrectAmount, click.ResultFor(err))
	require.NotNil(t, got)
	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)

	alert := f.awaitAlert(t)
	assert.Equal(t, email.AlertIntegrityViolation, alert.Kind)
	assert.Equal(t, "abc123", alert.TransactionParam)
	assert.Equal(t, "40000", alert.Details["received"])
}

func TestPrepare_UnknownTransaction(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)

	got, err := svc.Prepare(context.Background(), f.db, f.clickRequest(click.ActionPrepare, "missing", 0, "50000"))

	assert.Nil(t, got)
	assert.Equal(t, click.ResultTransactionNotFound, click.ResultFor(err))
}

func TestPrepare_WrongAction(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	f.seed(t, "42", "abc123", "50000")

	_, err := svc.Prepare(context.Background(), f.db, f.clickRequest(click.ActionComplete, "abc123", 1, "50000"))

	assert.Equal(t, click.ResultActionNotFound, click.ResultFor(err))
}

func TestComplete_PaysExactlyOnce(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	p, tx := f.seed(t, "42", "abc123", "50000")
	req := f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000")

	got, err := svc.Complete(context.Background(), f.db, req)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, got.Status)

	stored := helpers.ReloadTransaction(t, f.db, tx.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.Status)
	require.NotNil(t, stored.GatewayTransactionID)
	assert.Equal(t, "2210", *stored.GatewayTransactionID)
	require.NotNil(t, stored.GatewayCorrelationID)
	assert.Equal(t, "5511", *stored.GatewayCorrelationID)
	assert.NotNil(t, stored.PaidAt)
	assert.True(t, helpers.ReloadPrincipal(t, f.db, p.ID).HasPaid)

	// Повтор того же COMPLETE
	again, err := svc.Complete(context.Background(), f.db, req)
	assert.Equal(t, click.ResultAlreadyPaid, click.ResultFor(err))
	assert.Equal(t, tx.ID, again.ID)

	assert.Equal(t, []models.EventKind{models.EventPaid}, helpers.EventKinds(t, f.db, tx.ID))
	assert.Equal(t, []NotificationKind{NotificationPaymentConfirmed}, f.notifier.kinds())
}

func TestComplete_ConcurrentDuplicatesSettleOnce(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")
	req := f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000")

	const callers = 8
	results := make([]click.ResultCode, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := *req
			_, err := svc.Complete(context.Background(), f.db, &r)
			results[i] = click.ResultFor(err)
		}(i)
	}
	wg.Wait()

	var success, alreadyPaid int
	for _, code := range results {
		switch code {
		case click.ResultSuccess:
			success++
		case click.ResultAlreadyPaid:
			alreadyPaid++
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, callers-1, alreadyPaid)
	assert.Equal(t, []models.EventKind{models.EventPaid}, helpers.EventKinds(t, f.db, tx.ID))
}

func TestComplete_GatewayErrorFailsTransaction(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	p, tx := f.seed(t, "42", "abc123", "50000")

	req := f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000")
	req.Error = "-5017"
	req.ErrorNote = "Insufficient funds"

	_, err := svc.Complete(context.Background(), f.db, req)
	assert.Equal(t, click.ResultCancelled, click.ResultFor(err))

	stored := helpers.ReloadTransaction(t, f.db, tx.ID)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.False(t, helpers.ReloadPrincipal(t, f.db, p.ID).HasPaid)
	assert.Equal(t, []models.EventKind{models.EventUpstreamFailure}, helpers.EventKinds(t, f.db, tx.ID))

	alert := f.awaitAlert(t)
	assert.Equal(t, email.AlertUpstreamRejection, alert.Kind)

	// Успешный COMPLETE после отказа не воскрешает транзакцию
	_, err = svc.Complete(context.Background(), f.db, f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000"))
	assert.Equal(t, click.ResultCancelled, click.ResultFor(err))
	assert.Equal(t, models.PaymentStatusFailed, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
}

func TestComplete_AmountMismatchDoesNotPay(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	_, err := svc.Complete(context.Background(), f.db, f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50001"))

	assert.Equal(t, click.ResultIncorrectAmount, click.ResultFor(err))
	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
	f.awaitAlert(t)
}

func TestComplete_PrepareIDMustMatch(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	_, err := svc.Complete(context.Background(), f.db, f.clickRequest(click.ActionComplete, "abc123", tx.ID+100, "50000"))
	assert.Equal(t, click.ResultTransactionNotFound, click.ResultFor(err))

	req := f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000")
	req.MerchantPrepareID = ""
	_, err = svc.Complete(context.Background(), f.db, req)
	assert.Equal(t, click.ResultBadRequest, click.ResultFor(err))

	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
}

func TestComplete_BadSignature(t *testing.T) {
	f := newFixture(t)
	svc := NewProtocolService(f.deps, f.signer)
	_, tx := f.seed(t, "42", "abc123", "50000")

	req := f.clickRequest(click.ActionComplete, "abc123", tx.ID, "50000")
	req.Amount = "1"

	_, err := svc.Complete(context.Background(), f.db, req)

	assert.Equal(t, click.ResultSignFailed, click.ResultFor(err))
	assert.Equal(t, models.PaymentStatusPending, helpers.ReloadTransaction(t, f.db, tx.ID).Status)
}
