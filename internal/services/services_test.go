package services

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/email"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services/click"
	"paywall_backend/test/helpers"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "secret"

// =========================================================================
// Фейки внешних систем
// =========================================================================

type statusReply struct {
	resp *click.StatusResponse
	err  error
}

// fakeStatus отдает ответы по очереди, последний повторяется
type fakeStatus struct {
	mu         sync.Mutex
	configured bool
	replies    []statusReply
	calls      int
}

func (f *fakeStatus) Configured() bool { return f.configured }

func (f *fakeStatus) CheckStatus(ctx context.Context, merchantTransID string, createdAt time.Time) (*click.StatusResponse, error) {
	if !f.configured {
		return nil, click.ErrNotConfigured
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.replies) == 0 {
		return paidStatus(), nil
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply.resp, reply.err
}

func (f *fakeStatus) reply(resp *click.StatusResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, statusReply{resp: resp, err: err})
}

func (f *fakeStatus) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func intPtr(v int) *int { return &v }

func paidStatus() *click.StatusResponse {
	return &click.StatusResponse{ErrorCode: intPtr(0), ErrorNote: "Success", PaymentID: 991, PaymentStatus: intPtr(1)}
}

type fakeLedger struct {
	mu      sync.Mutex
	payment *repositories.ExternalPayment
	err     error
	calls   int
}

func (f *fakeLedger) HasValidPayment(ctx context.Context, principalRef string) (*repositories.ExternalPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.payment == nil {
		return &repositories.ExternalPayment{HasPaid: false}, nil
	}
	p := *f.payment
	return &p, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, principalRef string, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) kinds() []NotificationKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]NotificationKind, 0, len(n.sent))
	for _, s := range n.sent {
		kinds = append(kinds, s.Kind)
	}
	return kinds
}

type recordingAlerter struct {
	alerts chan email.Alert
}

func (a *recordingAlerter) Alert(ctx context.Context, alert email.Alert) error {
	a.alerts <- alert
	return nil
}

// =========================================================================
// Фикстура
// =========================================================================

type fixture struct {
	db       *gorm.DB
	status   *fakeStatus
	ledger   *fakeLedger
	notifier *recordingNotifier
	alerter  *recordingAlerter
	deps     Dependencies
	signer   *click.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:       helpers.NewTestDB(t),
		status:   &fakeStatus{configured: true},
		ledger:   &fakeLedger{},
		notifier: &recordingNotifier{},
		alerter:  &recordingAlerter{alerts: make(chan email.Alert, 16)},
		signer:   click.NewSigner(testSecret),
	}
	f.deps = NewDependencies(f.ledger, f.status, f.notifier, f.alerter)
	f.deps.NotifyTimeout = time.Second
	return f
}

func (f *fixture) awaitAlert(t *testing.T) email.Alert {
	t.Helper()
	select {
	case alert := <-f.alerter.alerts:
		return alert
	case <-time.After(2 * time.Second):
		t.Fatal("operator alert was not sent")
		return email.Alert{}
	}
}

// seed создает пользователя и pending транзакцию
func (f *fixture) seed(t *testing.T, ref, param, amount string) (*models.Principal, *models.Transaction) {
	t.Helper()
	p := helpers.CreatePrincipal(t, f.db, ref, false, nil)
	tx := helpers.CreateTransaction(t, f.db, p.ID, param, amount)
	return p, tx
}

func (f *fixture) clickRequest(action, param string, prepareID uint, amount string) *dto.ClickRequest {
	req := &dto.ClickRequest{
		ClickTransID:    "2210",
		ServiceID:       "12345",
		ClickPaydocID:   "5511",
		MerchantTransID: param,
		Amount:          amount,
		Action:          action,
		Error:           "0",
		SignTime:        "2024-06-15 10:00:00",
	}
	if action == click.ActionComplete {
		req.MerchantPrepareID = strconv.FormatUint(uint64(prepareID), 10)
	}
	req.SignString = f.signer.RequestDigest(signatureParams(req))
	return req
}

func mustEventKinds(t *testing.T, db *gorm.DB, principalID uint) []models.EventKind {
	t.Helper()
	events, err := repositories.NewEventRepository().ListByPrincipal(db, principalID, 100)
	require.NoError(t, err)

	kinds := make([]models.EventKind, 0, len(events))
	for i := len(events) - 1; i >= 0; i-- {
		kinds = append(kinds, events[i].Kind)
	}
	return kinds
}
