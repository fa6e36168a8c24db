package services

import (
	"context"
	"errors"

	"paywall_backend/internal/dto"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/pkg/apperrors"

	"gorm.io/gorm"
)

// OverrideService - ручные действия операторов. Каждое действие пишется в журнал.
type OverrideService interface {
	Approve(ctx context.Context, db *gorm.DB, operatorID, principalRef string) (*dto.OverrideResponse, error)
	Revoke(ctx context.Context, db *gorm.DB, operatorID, principalRef string) (*dto.OverrideResponse, error)
	CancelTransaction(ctx context.Context, db *gorm.DB, operatorID string, transactionID uint) (*models.Transaction, error)
	IsOperator(operatorID string) bool
}

type overrideService struct {
	*settlement
	operators map[string]struct{}
}

func NewOverrideService(deps Dependencies, operatorIDs []string) OverrideService {
	operators := make(map[string]struct{}, len(operatorIDs))
	for _, id := range operatorIDs {
		operators[id] = struct{}{}
	}
	return &overrideService{settlement: newSettlement(deps), operators: operators}
}

func (s *overrideService) IsOperator(operatorID string) bool {
	_, ok := s.operators[operatorID]
	return ok
}

func (s *overrideService) authorize(operatorID string) error {
	if operatorID == "" || !s.IsOperator(operatorID) {
		return apperrors.NewForbiddenError("Operator is not allowed to perform manual overrides")
	}
	return nil
}

func (s *overrideService) Approve(ctx context.Context, db *gorm.DB, operatorID, principalRef string) (*dto.OverrideResponse, error) {
	if err := s.authorize(operatorID); err != nil {
		return nil, err
	}
	ctx = logger.WithPrincipalRef(ctx, principalRef)

	principal, err := s.principalRepo.FindByRef(db, principalRef)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if principal.HasPaid {
		return nil, apperrors.ErrConflict(nil, "principal", "Already approved")
	}

	now := s.now().UTC()
	approval := models.ManualApprovalPayload{Operator: operatorID, At: now}
	var settled *models.Transaction

	err = db.Transaction(func(tx *gorm.DB) error {
		pending, err := s.txRepo.FindLatestPendingByPrincipal(tx, principal.ID)
		switch {
		case errors.Is(err, repositories.ErrTransactionNotFound):
			if err := s.appendEvents(tx, nil, principal.ID, operatorID, "", approval); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			err := s.txRepo.MarkPaid(tx, pending.ID, repositories.PaidUpdate{PaidAt: now})
			if err != nil && !errors.Is(err, repositories.ErrNotPending) {
				return err
			}
			if err == nil {
				paid := models.PaidPayload{Source: SourceManual}
				if err := s.appendEvents(tx, &pending.ID, principal.ID, operatorID, "", approval, paid); err != nil {
					return err
				}
				pending.Status = models.PaymentStatusPaid
				pending.PaidAt = &now
				settled = pending
			} else if err := s.appendEvents(tx, nil, principal.ID, operatorID, "", approval); err != nil {
				return err
			}
		}

		_, err = s.principalRepo.GrantEntitlement(tx, principal.ID)
		return err
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "manual approval", "operator", operatorID)

	resp := &dto.OverrideResponse{PrincipalRef: principalRef, HasPaid: true}
	if settled != nil {
		resp.TransactionID = &settled.ID
		s.dispatch.notify(ctx, principalRef, Notification{
			Kind:             NotificationPaymentConfirmed,
			TransactionParam: settled.TransactionParam,
			Amount:           settled.Amount.String(),
		})
	}
	s.dispatch.notify(ctx, principalRef, Notification{Kind: NotificationAccessGranted})
	return resp, nil
}

func (s *overrideService) Revoke(ctx context.Context, db *gorm.DB, operatorID, principalRef string) (*dto.OverrideResponse, error) {
	if err := s.authorize(operatorID); err != nil {
		return nil, err
	}
	ctx = logger.WithPrincipalRef(ctx, principalRef)

	principal, err := s.principalRepo.FindByRef(db, principalRef)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if !principal.HasPaid {
		return nil, apperrors.ErrConflict(nil, "principal", "Principal has no access to revoke")
	}

	now := s.now().UTC()
	errNotRevoked := errors.New("entitlement already revoked")

	err = db.Transaction(func(tx *gorm.DB) error {
		revoked, err := s.principalRepo.RevokeEntitlement(tx, principal.ID, now)
		if err != nil {
			return err
		}
		if !revoked {
			return errNotRevoked
		}
		return s.appendEvents(tx, nil, principal.ID, operatorID, "",
			models.ManualRevocationPayload{Operator: operatorID, At: now})
	})
	if errors.Is(err, errNotRevoked) {
		return nil, apperrors.ErrConflict(err, "principal", "Principal has no access to revoke")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "manual revocation", "operator", operatorID)
	s.dispatch.notify(ctx, principalRef, Notification{Kind: NotificationAccessRevoked, At: now})

	return &dto.OverrideResponse{PrincipalRef: principalRef, HasPaid: false, RevokedAt: &now}, nil
}

// CancelTransaction - административная отмена pending транзакции
func (s *overrideService) CancelTransaction(ctx context.Context, db *gorm.DB, operatorID string, transactionID uint) (*models.Transaction, error) {
	if err := s.authorize(operatorID); err != nil {
		return nil, err
	}

	t, err := s.txRepo.FindByID(db, transactionID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	if t.Status != models.PaymentStatusPending {
		return nil, apperrors.ErrConflict(nil, "payment", "Transaction is already "+string(t.Status))
	}

	now := s.now().UTC()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.txRepo.MarkTerminal(tx, t.ID, models.PaymentStatusCancelled); err != nil {
			return err
		}
		return s.appendEvents(tx, &t.ID, t.PrincipalID, operatorID, "",
			models.ManualCancelPayload{Operator: operatorID, At: now})
	})
	if errors.Is(err, repositories.ErrNotPending) {
		return nil, apperrors.ErrConflict(err, "payment", "Transaction is no longer pending")
	}
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	t.Status = models.PaymentStatusCancelled
	logger.PaymentLog(SourceManual, t.TransactionParam, string(models.PaymentStatusCancelled), nil)
	return t, nil
}
