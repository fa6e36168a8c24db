package services

import (
	"context"
	"errors"
	"strconv"
	"time"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services/click"
	"paywall_backend/pkg/apperrors"

	"gorm.io/gorm"
)

const externalLedgerTimeout = 5 * time.Second

// EntitlementService отвечает на вопрос "оплатил ли пользователь",
// сводя локальный флаг, status API Click и внешнюю БД платежей.
type EntitlementService interface {
	IsEntitled(ctx context.Context, db *gorm.DB, principalRef string) (bool, error)
	CheckTransaction(ctx context.Context, db *gorm.DB, principalRef, token string) (*dto.CheckTransactionResponse, error)
	// ReverifyPending перепроверяет pending транзакцию через status API.
	// Подтвержденная оплата коммитится, отказ оставляет транзакцию pending.
	ReverifyPending(ctx context.Context, db *gorm.DB, t *models.Transaction, actor string) (models.PaymentStatus, error)
}

type entitlementService struct {
	*settlement
	ledger repositories.ExternalLedger
	status click.StatusChecker
}

func NewEntitlementService(deps Dependencies) EntitlementService {
	ledger := deps.ExternalLedger
	if ledger == nil {
		ledger = repositories.NoopExternalLedger{}
	}
	return &entitlementService{
		settlement: newSettlement(deps),
		ledger:     ledger,
		status:     deps.StatusChecker,
	}
}

// IsEntitled читает флаг заново на каждый вызов. Неизвестный пользователь
// регистрируется, как при первом обращении к боту.
func (s *entitlementService) IsEntitled(ctx context.Context, db *gorm.DB, principalRef string) (bool, error) {
	ctx = logger.WithPrincipalRef(ctx, principalRef)

	principal, err := s.principalRepo.FindOrCreate(db, principalRef, "")
	if err != nil {
		return false, apperrors.InternalError(err)
	}
	if principal.HasPaid {
		return true, nil
	}

	entitled, _ := s.reconcileExternal(ctx, db, principal)
	return entitled, nil
}

// reconcileExternal сверяется с внешней БД и применяет правило отзыва.
// confirmed - внешняя БД подтвердила оплату, и правило отзыва ее приняло.
// Ошибка внешней БД не меняет локальный ответ.
func (s *entitlementService) reconcileExternal(ctx context.Context, db *gorm.DB, principal *models.Principal) (entitled, confirmed bool) {
	ledgerCtx, cancel := context.WithTimeout(ctx, externalLedgerTimeout)
	defer cancel()

	payment, err := s.ledger.HasValidPayment(ledgerCtx, principal.ExternalRef)
	if err != nil {
		logger.CtxWarn(ctx, "external ledger check failed", "error", err)
		return principal.HasPaid, false
	}
	if !payment.HasPaid {
		return principal.HasPaid, false
	}

	if !principal.AcceptsPaymentDated(payment.PaymentDate) {
		logger.CtxInfo(ctx, "external payment predates revocation, access not restored",
			"payment_date", payment.PaymentDate,
			"revoked_at", principal.RevokedAt,
		)
		return principal.HasPaid, false
	}

	granted, err := s.principalRepo.GrantEntitlement(db, principal.ID)
	if err != nil {
		logger.CtxWithError(ctx, "grant from external ledger failed", err)
		return true, true
	}
	if granted {
		logger.CtxInfo(ctx, "access granted from external ledger")
		principal.HasPaid = true
		principal.RevokedAt = nil
		s.dispatch.notify(ctx, principal.ExternalRef, Notification{Kind: NotificationAccessGranted})
	}
	return true, true
}

func (s *entitlementService) CheckTransaction(ctx context.Context, db *gorm.DB, principalRef, token string) (*dto.CheckTransactionResponse, error) {
	ctx = logger.WithTransactionParam(logger.WithPrincipalRef(ctx, principalRef), token)

	principal, err := s.principalRepo.FindByRef(db, principalRef)
	if err != nil {
		return nil, mapLookupError(err)
	}
	t, err := s.txRepo.FindByParam(db, token)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if t.PrincipalID != principal.ID {
		return nil, apperrors.ErrNotFound(nil, "payment", "Transaction does not exist")
	}

	if t.Status == models.PaymentStatusPending {
		status, err := s.ReverifyPending(ctx, db, t, SourceStatusAPI)
		if err != nil {
			return nil, err
		}
		if status == models.PaymentStatusPending {
			s.settleFromExternal(ctx, db, principal, t)
		}
	}

	principal, err = s.principalRepo.FindByID(db, principal.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.CheckTransactionResponse{
		TransactionParam: t.TransactionParam,
		Status:           t.Status,
		Entitled:         principal.HasPaid,
	}, nil
}

func (s *entitlementService) ReverifyPending(ctx context.Context, db *gorm.DB, t *models.Transaction, actor string) (models.PaymentStatus, error) {
	if t.Status != models.PaymentStatusPending || s.status == nil {
		return t.Status, nil
	}

	resp, err := s.status.CheckStatus(ctx, t.TransactionParam, t.CreatedAt)
	switch {
	case errors.Is(err, click.ErrNotConfigured):
		return t.Status, nil
	case errors.Is(err, click.ErrUnavailable):
		logger.PaymentLog(actor, t.TransactionParam, models.ReasonClickVerifyError, err)
		return t.Status, nil
	case err != nil:
		return t.Status, apperrors.InternalError(err)
	}

	if paid, reason := resp.Outcome(); !paid {
		logger.PaymentLog(actor, t.TransactionParam, "still_pending:"+reason, nil)
		return t.Status, nil
	}

	commit := paidCommit{
		Actor:    actor,
		Evidence: []models.EventPayload{resp.Payload()},
	}
	if resp.PaymentID > 0 {
		commit.GatewayTransactionID = optional(strconv.FormatInt(resp.PaymentID, 10))
	}

	err = s.commitPaid(ctx, db, t, commit)
	if errors.Is(err, repositories.ErrNotPending) {
		if err := s.settledOutcome(db, t); apperrors.HasCode(err, apperrors.CodeInternalError) {
			return t.Status, err
		}
		return t.Status, nil
	}
	if err != nil {
		return t.Status, apperrors.InternalError(err)
	}
	return t.Status, nil
}

// settleFromExternal закрывает pending транзакцию, если внешняя БД подтверждает оплату
func (s *entitlementService) settleFromExternal(ctx context.Context, db *gorm.DB, principal *models.Principal, t *models.Transaction) {
	if _, confirmed := s.reconcileExternal(ctx, db, principal); !confirmed {
		return
	}

	err := s.commitPaid(ctx, db, t, paidCommit{Actor: SourceExternalLedger})
	if errors.Is(err, repositories.ErrNotPending) {
		_ = s.settledOutcome(db, t)
		return
	}
	if err != nil {
		logger.CtxWithError(ctx, "commit from external ledger failed", err)
	}
}
