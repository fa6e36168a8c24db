package services

import (
	"context"
	"errors"
	"time"

	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// Источники сигналов об оплате (actor в журнале)
const (
	SourceClickComplete  = "click_complete"
	SourceWebhook        = "webhook"
	SourceStatusAPI      = "click_status_api"
	SourceExternalLedger = "external_ledger"
	SourceReconciler     = "reconcile_worker"
	SourceManual         = "manual"
)

// settlement - единственное место, где транзакция покидает pending.
// Все переходы - CAS в репозитории плюс записи журнала в одной транзакции БД.
type settlement struct {
	txRepo        repositories.TransactionRepository
	principalRepo repositories.PrincipalRepository
	eventRepo     repositories.EventRepository
	dispatch      *dispatcher
	now           func() time.Time
}

type paidCommit struct {
	Actor                string
	GatewayTransactionID *string
	GatewayCorrelationID *string
	// События, записываемые перед paid (verification, manual_approval)
	Evidence []models.EventPayload
}

// commitPaid переводит pending -> paid. repositories.ErrNotPending означает,
// что транзакцию уже перевел другой сигнал.
func (s *settlement) commitPaid(ctx context.Context, db *gorm.DB, t *models.Transaction, c paidCommit) error {
	paidAt := s.now().UTC()

	err := db.Transaction(func(tx *gorm.DB) error {
		err := s.txRepo.MarkPaid(tx, t.ID, repositories.PaidUpdate{
			GatewayTransactionID: c.GatewayTransactionID,
			GatewayCorrelationID: c.GatewayCorrelationID,
			PaidAt:               paidAt,
		})
		if err != nil {
			return err
		}

		paid := models.PaidPayload{Source: c.Actor}
		if c.GatewayTransactionID != nil {
			paid.GatewayTransactionID = *c.GatewayTransactionID
		}
		if c.GatewayCorrelationID != nil {
			paid.GatewayCorrelationID = *c.GatewayCorrelationID
		}
		return s.appendEvents(tx, &t.ID, t.PrincipalID, c.Actor, "", append(c.Evidence, paid)...)
	})
	if err != nil {
		return err
	}

	t.Status = models.PaymentStatusPaid
	t.PaidAt = &paidAt
	t.GatewayTransactionID = c.GatewayTransactionID
	t.GatewayCorrelationID = c.GatewayCorrelationID

	logger.PaymentLog(c.Actor, t.TransactionParam, string(models.PaymentStatusPaid), nil)
	s.grantAndNotify(ctx, db, t)
	return nil
}

// commitFailed переводит pending -> failed с причиной и событиями-доказательствами
func (s *settlement) commitFailed(ctx context.Context, db *gorm.DB, t *models.Transaction, actor, reason string, evidence ...models.EventPayload) error {
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := s.txRepo.MarkTerminal(tx, t.ID, models.PaymentStatusFailed); err != nil {
			return err
		}
		return s.appendEvents(tx, &t.ID, t.PrincipalID, actor, reason, evidence...)
	})
	if err != nil {
		return err
	}

	t.Status = models.PaymentStatusFailed
	logger.PaymentLog(actor, t.TransactionParam, string(models.PaymentStatusFailed)+":"+reason, nil)

	if ref := s.principalRef(ctx, db, t.PrincipalID); ref != "" {
		s.dispatch.notify(ctx, ref, Notification{
			Kind:             NotificationPaymentFailed,
			TransactionParam: t.TransactionParam,
			Amount:           t.Amount.String(),
			Reason:           reason,
		})
	}
	return nil
}

// grantAndNotify выдает доступ владельцу после коммита. Ошибки не откатывают платеж.
func (s *settlement) grantAndNotify(ctx context.Context, db *gorm.DB, t *models.Transaction) {
	if _, err := s.principalRepo.GrantEntitlement(db, t.PrincipalID); err != nil {
		logger.CtxWithError(ctx, "grant entitlement after payment failed", err,
			"principal_id", t.PrincipalID,
			"transaction_param", t.TransactionParam,
		)
	}

	if ref := s.principalRef(ctx, db, t.PrincipalID); ref != "" {
		s.dispatch.notify(ctx, ref, Notification{
			Kind:             NotificationPaymentConfirmed,
			TransactionParam: t.TransactionParam,
			Amount:           t.Amount.String(),
		})
	}
}

// settledOutcome перечитывает транзакцию после проигранного CAS
// и возвращает идемпотентный ответ по ее терминальному статусу.
func (s *settlement) settledOutcome(db *gorm.DB, t *models.Transaction) error {
	current, err := s.txRepo.FindByID(db, t.ID)
	if err != nil {
		return apperrors.InternalError(err)
	}
	*t = *current
	return terminalStatusError(current)
}

func (s *settlement) appendEvents(db *gorm.DB, transactionID *uint, principalID uint, actor, reason string, payloads ...models.EventPayload) error {
	for _, payload := range payloads {
		event, err := models.NewPaymentEvent(transactionID, principalID, actor, reason, payload)
		if err != nil {
			return err
		}
		event.CreatedAt = s.now().UTC()
		if err := s.eventRepo.Append(db, event); err != nil {
			return err
		}
	}
	return nil
}

func (s *settlement) principalRef(ctx context.Context, db *gorm.DB, principalID uint) string {
	p, err := s.principalRepo.FindByID(db, principalID)
	if err != nil {
		logger.CtxWarn(ctx, "principal lookup failed", "principal_id", principalID, "error", err)
		return ""
	}
	return p.ExternalRef
}

// terminalStatusError - ответ на повтор по транзакции, уже покинувшей pending
func terminalStatusError(t *models.Transaction) error {
	switch t.Status {
	case models.PaymentStatusPaid:
		return apperrors.ErrAlreadySettled()
	case models.PaymentStatusFailed, models.PaymentStatusCancelled:
		return apperrors.ErrInvalidStatus("payment", "Transaction "+string(t.Status))
	default:
		return nil
	}
}

// mapLookupError переводит ошибки поиска транзакции в AppError
func mapLookupError(err error) error {
	if errors.Is(err, repositories.ErrTransactionNotFound) {
		return apperrors.ErrNotFound(err, "payment", "Transaction does not exist")
	}
	if errors.Is(err, repositories.ErrPrincipalNotFound) {
		return apperrors.ErrNotFound(err, "principal", "Principal not found")
	}
	return apperrors.InternalError(err)
}
