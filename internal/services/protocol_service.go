package services

import (
	"context"
	"errors"
	"strconv"

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

// ProtocolService - двухфазный протокол Click (PREPARE / COMPLETE).
// Транзакция возвращается и вместе с ошибкой, если она найдена:
// ответ на повтор (-4) содержит ее id.
type ProtocolService interface {
	Prepare(ctx context.Context, db *gorm.DB, req *dto.ClickRequest) (*models.Transaction, error)
	Complete(ctx context.Context, db *gorm.DB, req *dto.ClickRequest) (*models.Transaction, error)
}

type protocolService struct {
	*settlement
	signer *click.Signer
}

func NewProtocolService(deps Dependencies, signer *click.Signer) ProtocolService {
	return &protocolService{settlement: newSettlement(deps), signer: signer}
}

func signatureParams(req *dto.ClickRequest) click.SignatureParams {
	return click.SignatureParams{
		ClickTransID:      req.ClickTransID,
		ServiceID:         req.ServiceID,
		MerchantTransID:   req.MerchantTransID,
		MerchantPrepareID: req.MerchantPrepareID,
		Amount:            req.Amount,
		Action:            req.Action,
		SignTime:          req.SignTime,
	}
}

func (s *protocolService) Prepare(ctx context.Context, db *gorm.DB, req *dto.ClickRequest) (*models.Transaction, error) {
	if req.Action != click.ActionPrepare {
		return nil, apperrors.ErrInvalidOperation("payment", "Action not found")
	}
	if !s.signer.Verify(signatureParams(req), req.SignString) {
		logger.PaymentLog("click_prepare", req.MerchantTransID, "sign_failed", nil)
		return nil, apperrors.ErrAuthenticationFailure("SIGN CHECK FAILED!")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, apperrors.ErrMalformedRequest("Invalid amount")
	}

	t, err := s.txRepo.FindByParam(db, req.MerchantTransID)
	if err != nil {
		return nil, mapLookupError(err)
	}

	if !t.AmountMatches(amount) {
		s.alertAmountMismatch(ctx, t, "click_prepare", req.Amount)
		return t, apperrors.ErrIntegrityViolation("Incorrect parameter amount")
	}

	if err := terminalStatusError(t); err != nil {
		return t, err
	}

	logger.PaymentLog("click_prepare", t.TransactionParam, "prepared", nil)
	return t, nil
}

func (s *protocolService) Complete(ctx context.Context, db *gorm.DB, req *dto.ClickRequest) (*models.Transaction, error) {
	if req.Action != click.ActionComplete {
		return nil, apperrors.ErrInvalidOperation("payment", "Action not found")
	}
	prepareID, err := strconv.ParseUint(req.MerchantPrepareID, 10, 64)
	if err != nil {
		return nil, apperrors.ErrMalformedRequest("merchant_prepare_id is required")
	}
	if !s.signer.Verify(signatureParams(req), req.SignString) {
		logger.PaymentLog("click_complete", req.MerchantTransID, "sign_failed", nil)
		return nil, apperrors.ErrAuthenticationFailure("SIGN CHECK FAILED!")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, apperrors.ErrMalformedRequest("Invalid amount")
	}
	gatewayError := 0
	if req.Error != "" {
		if gatewayError, err = strconv.Atoi(req.Error); err != nil {
			return nil, apperrors.ErrMalformedRequest("Invalid error code")
		}
	}

	t, err := s.txRepo.FindByParamAndID(db, req.MerchantTransID, uint(prepareID))
	if err != nil {
		return nil, mapLookupError(err)
	}

	if gatewayError != 0 {
		return t, s.failFromGateway(ctx, db, t, gatewayError, req.ErrorNote)
	}

	if err := terminalStatusError(t); err != nil {
		return t, err
	}

	if !t.AmountMatches(amount) {
		s.alertAmountMismatch(ctx, t, "click_complete", req.Amount)
		return t, apperrors.ErrIntegrityViolation("Incorrect parameter amount")
	}

	err = s.commitPaid(ctx, db, t, paidCommit{
		Actor:                SourceClickComplete,
		GatewayTransactionID: optional(req.ClickTransID),
		GatewayCorrelationID: optional(req.ClickPaydocID),
	})
	if errors.Is(err, repositories.ErrNotPending) {
		return t, s.settledOutcome(db, t)
	}
	if err != nil {
		return t, apperrors.InternalError(err)
	}
	return t, nil
}

// failFromGateway обрабатывает COMPLETE с error != 0. Терминальные исходы не переисполняются.
func (s *protocolService) failFromGateway(ctx context.Context, db *gorm.DB, t *models.Transaction, code int, note string) error {
	if err := terminalStatusError(t); err != nil {
		if t.Status == models.PaymentStatusPaid {
			return err
		}
		return apperrors.ErrUpstreamRejection(nil, "Transaction cancelled")
	}

	err := s.commitFailed(ctx, db, t, SourceClickComplete, "click_error_"+strconv.Itoa(code), models.UpstreamFailurePayload{
		Source:    SourceClickComplete,
		ErrorCode: code,
		ErrorNote: note,
	})
	if errors.Is(err, repositories.ErrNotPending) {
		if outcome := s.settledOutcome(db, t); t.Status == models.PaymentStatusPaid {
			return outcome
		}
		return apperrors.ErrUpstreamRejection(nil, "Transaction cancelled")
	}
	if err != nil {
		return apperrors.InternalError(err)
	}

	s.dispatch.alert(ctx, email.Alert{
		Kind:             email.AlertUpstreamRejection,
		TransactionParam: t.TransactionParam,
		Reason:           note,
		Details:          map[string]string{"error": strconv.Itoa(code)},
	})
	return apperrors.ErrUpstreamRejection(nil, "Transaction cancelled")
}

func (s *protocolService) alertAmountMismatch(ctx context.Context, t *models.Transaction, source, received string) {
	logger.CtxWarn(ctx, "amount mismatch",
		"source", source,
		"transaction_param", t.TransactionParam,
		"expected", t.Amount.String(),
		"received", received,
	)
	s.dispatch.alert(ctx, email.Alert{
		Kind:             email.AlertIntegrityViolation,
		TransactionParam: t.TransactionParam,
		Reason:           models.ReasonAmountMismatch,
		Details:          map[string]string{"source": source, "expected": t.Amount.String(), "received": received},
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
