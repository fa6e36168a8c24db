package services

import (
	"context"
	"time"

	"paywall_backend/internal/email"
	"paywall_backend/internal/logger"
)

type NotificationKind string

const (
	NotificationPaymentConfirmed NotificationKind = "payment_confirmed"
	NotificationPaymentFailed    NotificationKind = "payment_failed"
	NotificationAccessGranted    NotificationKind = "access_granted"
	NotificationAccessRevoked    NotificationKind = "access_revoked"
)

// Notification - событие для чат-коллаборатора. Текст сообщения пользователю
// формирует сам коллаборатор.
type Notification struct {
	Kind             NotificationKind `json:"kind"`
	PrincipalRef     string           `json:"principal_ref"`
	TransactionParam string           `json:"transaction_param,omitempty"`
	Amount           string           `json:"amount,omitempty"`
	Reason           string           `json:"reason,omitempty"`
	At               time.Time        `json:"at"`
}

// Notifier доставляет уведомление пользователю
type Notifier interface {
	Notify(ctx context.Context, principalRef string, n Notification) error
}

// Alerter сообщает операторам об инцидентах
type Alerter interface {
	Alert(ctx context.Context, alert email.Alert) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, Notification) error { return nil }

type NoopAlerter struct{}

func (NoopAlerter) Alert(context.Context, email.Alert) error { return nil }

// dispatcher - best-effort доставка с таймаутом. Ошибки только логируются.
type dispatcher struct {
	notifier Notifier
	alerter  Alerter
	timeout  time.Duration
}

func newDispatcher(notifier Notifier, alerter Alerter, timeout time.Duration) *dispatcher {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if alerter == nil {
		alerter = NoopAlerter{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &dispatcher{notifier: notifier, alerter: alerter, timeout: timeout}
}

func (d *dispatcher) notify(ctx context.Context, principalRef string, n Notification) {
	if principalRef == "" {
		return
	}
	n.PrincipalRef = principalRef
	if n.At.IsZero() {
		n.At = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, principalRef, n); err != nil {
		logger.CtxWarn(ctx, "notification failed",
			"principal_ref", principalRef,
			"kind", n.Kind,
			"error", err,
		)
	}
}

// alert отправляется асинхронно: SMTP не должен задерживать ответ Click
func (d *dispatcher) alert(ctx context.Context, alert email.Alert) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		if err := d.alerter.Alert(ctx, alert); err != nil {
			logger.CtxWarn(ctx, "operator alert failed",
				"kind", alert.Kind,
				"transaction_param", alert.TransactionParam,
				"error", err,
			)
		}
	}()
}
