package services

import (
	"context"
	"fmt"

	"paywall_backend/internal/config"
	"paywall_backend/internal/dto"
	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"
	"paywall_backend/internal/services/click"
	"paywall_backend/pkg/apperrors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentService - создание платежей и административное чтение реестра
type PaymentService interface {
	CreatePendingTransaction(ctx context.Context, db *gorm.DB, req *dto.CreateTransactionRequest) (*dto.CreateTransactionResponse, error)
	ListPending(ctx context.Context, db *gorm.DB, page, pageSize int) (*dto.PendingListResponse, error)
	GetTransactionDetails(ctx context.Context, db *gorm.DB, transactionID uint) (*dto.TransactionDetails, error)
	GetStats(ctx context.Context, db *gorm.DB) (*repositories.PaymentStats, error)
}

type PaymentConfig struct {
	Amount         decimal.Decimal
	Link           click.LinkConfig
	MerchantUserID string
}

// PaymentConfigFrom - цена доступа и параметры ссылки из конфига.
// Сумма уже проверена в config.Validate.
func PaymentConfigFrom(cfg *config.Config) PaymentConfig {
	amount, err := decimal.NewFromString(cfg.Click.Amount)
	if err != nil {
		logger.Fatal("invalid click.amount", "amount", cfg.Click.Amount, "error", err)
	}
	return PaymentConfig{
		Amount: amount,
		Link: click.LinkConfig{
			PayURL:     cfg.Click.PayURL,
			ServiceID:  cfg.Click.ServiceID,
			MerchantID: cfg.Click.MerchantID,
			ReturnURL:  cfg.Click.ReturnURL,
		},
		MerchantUserID: cfg.Click.MerchantUserID,
	}
}

type paymentService struct {
	*settlement
	cfg PaymentConfig
}

func NewPaymentService(deps Dependencies, cfg PaymentConfig) PaymentService {
	return &paymentService{settlement: newSettlement(deps), cfg: cfg}
}

func (s *paymentService) CreatePendingTransaction(ctx context.Context, db *gorm.DB, req *dto.CreateTransactionRequest) (*dto.CreateTransactionResponse, error) {
	ctx = logger.WithPrincipalRef(ctx, req.PrincipalRef)

	principal, err := s.principalRepo.FindOrCreate(db, req.PrincipalRef, req.Username)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	var t *models.Transaction
	err = db.Transaction(func(tx *gorm.DB) error {
		t = &models.Transaction{
			TransactionParam: click.NewTransactionParam(),
			PrincipalID:      principal.ID,
			Amount:           s.cfg.Amount,
			Status:           models.PaymentStatusPending,
		}
		if err := s.txRepo.CreateTransaction(tx, t); err != nil {
			return err
		}

		return s.appendEvents(tx, &t.ID, principal.ID, req.PrincipalRef, "", models.CreatedPayload{
			Amount: t.Amount.String(),
			Source: "api",
		})
	})
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("create pending transaction: %w", err))
	}

	logger.CtxInfo(ctx, "pending transaction created",
		"transaction_param", t.TransactionParam,
		"amount", t.Amount.String(),
	)

	return &dto.CreateTransactionResponse{
		TransactionID:    t.ID,
		TransactionParam: t.TransactionParam,
		Amount:           t.Amount,
		PaymentURL:       click.PaymentLink(s.cfg.Link, t.Amount.String(), t.TransactionParam, s.cfg.MerchantUserID),
		CreatedAt:        t.CreatedAt,
	}, nil
}

func (s *paymentService) ListPending(ctx context.Context, db *gorm.DB, page, pageSize int) (*dto.PendingListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := s.txRepo.ListPending(db, page, pageSize)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.PendingListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *paymentService) GetTransactionDetails(ctx context.Context, db *gorm.DB, transactionID uint) (*dto.TransactionDetails, error) {
	t, err := s.txRepo.FindByID(db, transactionID)
	if err != nil {
		return nil, mapLookupError(err)
	}
	events, err := s.eventRepo.ListByTransaction(db, t.ID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.TransactionDetails{Transaction: t, Events: events}, nil
}

func (s *paymentService) GetStats(ctx context.Context, db *gorm.DB) (*repositories.PaymentStats, error) {
	stats, err := s.txRepo.GetStats(db)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return stats, nil
}
