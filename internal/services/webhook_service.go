package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"paywall_backend/internal/config"
	"paywall_backend/internal/dto"
	"paywall_backend/internal/email"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services/click"
	"paywall_backend/pkg/apperrors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WebhookService - сверка асинхронных уведомлений Click
type WebhookService interface {
	Handle(ctx context.Context, db *gorm.DB, providedSecret string, req *dto.WebhookRequest) (*dto.WebhookResponse, error)
	Authenticate(ctx context.Context, providedSecret string) error
	AuthEnabled() bool
}

type WebhookConfig struct {
	Secret          string
	TransientPolicy string
	RetryAttempts   int
	RetryBackoff    time.Duration
}

type webhookService struct {
	*settlement
	status click.StatusChecker
	cfg    WebhookConfig
}

func NewWebhookService(deps Dependencies, cfg WebhookConfig) WebhookService {
	if cfg.TransientPolicy == "" {
		cfg.TransientPolicy = config.TransientLeavePending
	}
	return &webhookService{
		settlement: newSettlement(deps),
		status:     deps.StatusChecker,
		cfg:        cfg,
	}
}

func (s *webhookService) AuthEnabled() bool {
	return strings.TrimSpace(s.cfg.Secret) != ""
}

// isSuccessStatus - статусы, которые Click присылает для успешной оплаты
func isSuccessStatus(status string) bool {
	switch status {
	case "success", "paid", "completed":
		return true
	default:
		return false
	}
}

// Authenticate проверяет секрет заголовка до разбора тела
func (s *webhookService) Authenticate(ctx context.Context, providedSecret string) error {
	if !click.VerifyWebhookSecret(s.cfg.Secret, providedSecret) {
		logger.CtxWarn(ctx, "webhook rejected: invalid secret")
		return apperrors.ErrAuthenticationFailure("Unauthorized")
	}
	return nil
}

func (s *webhookService) Handle(ctx context.Context, db *gorm.DB, providedSecret string, req *dto.WebhookRequest) (*dto.WebhookResponse, error) {
	if err := s.Authenticate(ctx, providedSecret); err != nil {
		return nil, err
	}

	token := req.Token()
	if token == "" {
		return nil, apperrors.ErrMalformedRequest("transaction_param required")
	}
	ctx = logger.WithTransactionParam(ctx, token)

	t, err := s.txRepo.FindByParam(db, token)
	if err != nil {
		if errors.Is(err, repositories.ErrTransactionNotFound) {
			logger.CtxWarn(ctx, "webhook for unknown transaction")
			return nil, apperrors.ErrNotFound(err, "payment", "Payment not found")
		}
		return nil, apperrors.InternalError(err)
	}

	if resp := idempotentResponse(t); resp != nil {
		return resp, nil
	}

	amount, ok := parseWebhookAmount(req.Amount)
	if !ok {
		logger.CtxWarn(ctx, "webhook with invalid amount", "amount", string(req.Amount))
		return nil, apperrors.ErrMalformedRequest("Invalid amount")
	}
	if !t.AmountMatches(amount) {
		return s.rejectAmount(ctx, db, t, amount)
	}

	if !isSuccessStatus(req.Status) {
		return s.failReported(ctx, db, t, req.Status)
	}

	principal, err := s.principalRepo.FindByID(db, t.PrincipalID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if userID := rawString(req.UserID); userID != "" && userID != principal.ExternalRef {
		logger.CtxWarn(ctx, "webhook user_id differs from transaction owner",
			"user_id", userID,
			"owner", principal.ExternalRef,
		)
	}

	commit := paidCommit{Actor: SourceWebhook}

	verified, err := s.verify(ctx, t)
	switch {
	case errors.Is(err, click.ErrNotConfigured):
		logger.CtxWarn(ctx, "click status api not configured, webhook accepted without verification")
	case errors.Is(err, click.ErrUnavailable):
		logger.PaymentLog(SourceWebhook, t.TransactionParam, models.ReasonClickVerifyError, err)
		return nil, apperrors.ErrTransientUnavailable(err)
	case err != nil:
		return nil, apperrors.InternalError(err)
	default:
		if paid, reason := verified.Outcome(); !paid {
			return s.rejectVerification(ctx, db, t, verified, reason)
		}
		commit.Evidence = append(commit.Evidence, verified.Payload())
		if verified.PaymentID > 0 {
			commit.GatewayTransactionID = optional(strconv.FormatInt(verified.PaymentID, 10))
		}
	}

	err = s.commitPaid(ctx, db, t, commit)
	if errors.Is(err, repositories.ErrNotPending) {
		if err := s.settledOutcome(db, t); apperrors.HasCode(err, apperrors.CodeInternalError) {
			return nil, err
		}
		return idempotentResponse(t), nil
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.WebhookResponse{Success: true, Message: "Payment completed"}, nil
}

// verify перепроверяет оплату через status API. При политике retry
// временные ошибки повторяются с паузой, затем транзакция остается pending.
func (s *webhookService) verify(ctx context.Context, t *models.Transaction) (*click.StatusResponse, error) {
	if s.status == nil {
		return nil, click.ErrNotConfigured
	}
	attempts := 1
	if s.cfg.TransientPolicy == config.TransientRetry {
		attempts += s.cfg.RetryAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := s.status.CheckStatus(ctx, t.TransactionParam, t.CreatedAt)
		if !errors.Is(err, click.ErrUnavailable) {
			return resp, err
		}
		lastErr = err

		if attempt < attempts {
			logger.CtxWarn(ctx, "click status api unavailable, retrying", "attempt", attempt, "error", err)
			select {
			case <-time.After(s.cfg.RetryBackoff):
			case <-ctx.Done():
				return nil, lastErr
			}
		}
	}
	return nil, lastErr
}

func (s *webhookService) rejectAmount(ctx context.Context, db *gorm.DB, t *models.Transaction, received decimal.Decimal) (*dto.WebhookResponse, error) {
	logger.CtxWarn(ctx, "webhook amount mismatch",
		"expected", t.Amount.String(),
		"received", received.String(),
	)

	err := s.commitFailed(ctx, db, t, SourceWebhook, models.ReasonAmountMismatch, models.AmountMismatchPayload{
		Expected: t.Amount.String(),
		Received: received.String(),
		Source:   SourceWebhook,
	})
	if err != nil && !errors.Is(err, repositories.ErrNotPending) {
		return nil, apperrors.InternalError(err)
	}

	s.dispatch.alert(ctx, email.Alert{
		Kind:             email.AlertIntegrityViolation,
		TransactionParam: t.TransactionParam,
		Reason:           models.ReasonAmountMismatch,
		Details:          map[string]string{"source": SourceWebhook, "expected": t.Amount.String(), "received": received.String()},
	})
	return nil, apperrors.ErrIntegrityViolation("Amount mismatch")
}

func (s *webhookService) rejectVerification(ctx context.Context, db *gorm.DB, t *models.Transaction, verified *click.StatusResponse, reason string) (*dto.WebhookResponse, error) {
	err := s.commitFailed(ctx, db, t, SourceStatusAPI, reason,
		verified.Payload(),
		models.UpstreamFailurePayload{
			Source:    SourceStatusAPI,
			ErrorCode: verified.Code(),
			ErrorNote: verified.ErrorNote,
		},
	)
	if errors.Is(err, repositories.ErrNotPending) {
		if err := s.settledOutcome(db, t); apperrors.HasCode(err, apperrors.CodeInternalError) {
			return nil, err
		}
		return idempotentResponse(t), nil
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	s.dispatch.alert(ctx, email.Alert{
		Kind:             email.AlertUpstreamRejection,
		TransactionParam: t.TransactionParam,
		Reason:           reason,
		Details: map[string]string{
			"error_code": strconv.Itoa(verified.Code()),
			"error_note": verified.ErrorNote,
		},
	})

	message := "Click verify failed"
	if reason == models.ReasonClickNotPaid {
		message = "Click status not paid"
	}
	return nil, apperrors.ErrUpstreamRejection(nil, message)
}

func (s *webhookService) failReported(ctx context.Context, db *gorm.DB, t *models.Transaction, status string) (*dto.WebhookResponse, error) {
	err := s.commitFailed(ctx, db, t, SourceWebhook, status, models.UpstreamFailurePayload{
		Source:    SourceWebhook,
		ErrorNote: status,
	})
	if errors.Is(err, repositories.ErrNotPending) {
		if err := s.settledOutcome(db, t); apperrors.HasCode(err, apperrors.CodeInternalError) {
			return nil, err
		}
		return idempotentResponse(t), nil
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.WebhookResponse{Success: false, Message: "Payment failed"}, nil
}

// idempotentResponse - ответ на уведомление по уже закрытой транзакции
func idempotentResponse(t *models.Transaction) *dto.WebhookResponse {
	switch t.Status {
	case models.PaymentStatusPaid:
		return &dto.WebhookResponse{Success: true, Message: "Already paid"}
	case models.PaymentStatusFailed, models.PaymentStatusCancelled:
		return &dto.WebhookResponse{Success: false, Message: "Payment already " + string(t.Status)}
	default:
		return nil
	}
}

// parseWebhookAmount принимает число или строку; сумма должна быть конечной и положительной
func parseWebhookAmount(raw json.RawMessage) (decimal.Decimal, bool) {
	value := rawString(raw)
	if value == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(value)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// rawString снимает кавычки со строкового JSON-значения
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
