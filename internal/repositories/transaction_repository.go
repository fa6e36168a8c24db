package repositories

import (
	"errors"
	"fmt"
	"time"

	"paywall_backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	CreateTransaction(db *gorm.DB, tx *models.Transaction) error
	FindByID(db *gorm.DB, id uint) (*models.Transaction, error)
	FindByParam(db *gorm.DB, param string) (*models.Transaction, error)
	FindByParamAndID(db *gorm.DB, param string, id uint) (*models.Transaction, error)
	FindLatestPendingByPrincipal(db *gorm.DB, principalID uint) (*models.Transaction, error)
	FindStalePending(db *gorm.DB, createdBefore time.Time, limit int) ([]models.Transaction, error)
	ListPending(db *gorm.DB, page, pageSize int) ([]models.Transaction, int64, error)

	// Переходы статуса - только compare-and-swap от pending
	MarkPaid(db *gorm.DB, id uint, update PaidUpdate) error
	MarkTerminal(db *gorm.DB, id uint, status models.PaymentStatus) error

	GetStats(db *gorm.DB) (*PaymentStats, error)
}

// PaidUpdate - поля, фиксируемые при переходе в paid
type PaidUpdate struct {
	GatewayTransactionID *string
	GatewayCorrelationID *string
	PaidAt               time.Time
}

type PaymentStats struct {
	Pending        int64           `json:"pending"`
	Paid           int64           `json:"paid"`
	Failed         int64           `json:"failed"`
	Cancelled      int64           `json:"cancelled"`
	PaidPrincipals int64           `json:"paid_principals"`
	Revenue        decimal.Decimal `json:"revenue"`
}

type TransactionRepositoryImpl struct{}

func NewTransactionRepository() TransactionRepository {
	return &TransactionRepositoryImpl{}
}

func (r *TransactionRepositoryImpl) CreateTransaction(db *gorm.DB, tx *models.Transaction) error {
	if tx.Status == "" {
		tx.Status = models.PaymentStatusPending
	}
	if err := db.Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransactionParam
		}
		return err
	}
	return nil
}

func (r *TransactionRepositoryImpl) FindByID(db *gorm.DB, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.First(&tx, id).Error; err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

func (r *TransactionRepositoryImpl) FindByParam(db *gorm.DB, param string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("transaction_param = ?", param).First(&tx).Error; err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

// FindByParamAndID ищет по паре merchant_trans_id + merchant_prepare_id (защита от подделки prepare id)
func (r *TransactionRepositoryImpl) FindByParamAndID(db *gorm.DB, param string, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := db.Where("transaction_param = ? AND id = ?", param, id).First(&tx).Error; err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

func (r *TransactionRepositoryImpl) FindLatestPendingByPrincipal(db *gorm.DB, principalID uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := db.Where("principal_id = ? AND status = ?", principalID, models.PaymentStatusPending).
		Order("created_at DESC, id DESC").
		First(&tx).Error
	if err != nil {
		return nil, mapNotFound(err, ErrTransactionNotFound)
	}
	return &tx, nil
}

func (r *TransactionRepositoryImpl) FindStalePending(db *gorm.DB, createdBefore time.Time, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := db.Where("status = ? AND created_at < ?", models.PaymentStatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}

func (r *TransactionRepositoryImpl) ListPending(db *gorm.DB, page, pageSize int) ([]models.Transaction, int64, error) {
	var (
		txs   []models.Transaction
		total int64
	)

	pending := func() *gorm.DB {
		return db.Model(&models.Transaction{}).Where("status = ?", models.PaymentStatusPending)
	}
	if err := pending().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := pending().Preload("Principal").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}

// MarkPaid - атомарный переход pending -> paid.
// ErrNotPending означает, что конкурентный вызов уже перевел транзакцию.
func (r *TransactionRepositoryImpl) MarkPaid(db *gorm.DB, id uint, update PaidUpdate) error {
	updates := map[string]interface{}{
		"status":     models.PaymentStatusPaid,
		"paid_at":    update.PaidAt,
		"updated_at": update.PaidAt,
	}
	if update.GatewayTransactionID != nil {
		updates["gateway_transaction_id"] = *update.GatewayTransactionID
	}
	if update.GatewayCorrelationID != nil {
		updates["gateway_correlation_id"] = *update.GatewayCorrelationID
	}

	return compareAndSwap(db, id, updates)
}

// MarkTerminal - атомарный переход pending -> failed|cancelled
func (r *TransactionRepositoryImpl) MarkTerminal(db *gorm.DB, id uint, status models.PaymentStatus) error {
	if status != models.PaymentStatusFailed && status != models.PaymentStatusCancelled {
		return fmt.Errorf("unsupported terminal status %q", status)
	}
	return compareAndSwap(db, id, map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	})
}

func compareAndSwap(db *gorm.DB, id uint, updates map[string]interface{}) error {
	result := db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.PaymentStatusPending).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

func (r *TransactionRepositoryImpl) GetStats(db *gorm.DB) (*PaymentStats, error) {
	var rows []struct {
		Status models.PaymentStatus
		Count  int64
	}
	err := db.Model(&models.Transaction{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &PaymentStats{Revenue: decimal.Zero}
	for _, row := range rows {
		switch row.Status {
		case models.PaymentStatusPending:
			stats.Pending = row.Count
		case models.PaymentStatusPaid:
			stats.Paid = row.Count
		case models.PaymentStatusFailed:
			stats.Failed = row.Count
		case models.PaymentStatusCancelled:
			stats.Cancelled = row.Count
		}
	}

	if err := db.Model(&models.Principal{}).Where("has_paid = ?", true).Count(&stats.PaidPrincipals).Error; err != nil {
		return nil, err
	}

	var revenue decimal.NullDecimal
	err = db.Model(&models.Transaction{}).
		Select("SUM(amount)").
		Where("status = ?", models.PaymentStatusPaid).
		Row().Scan(&revenue)
	if err != nil {
		return nil, err
	}
	if revenue.Valid {
		stats.Revenue = revenue.Decimal
	}

	return stats, nil
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
