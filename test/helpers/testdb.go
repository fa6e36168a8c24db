package helpers

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"paywall_backend/database"
	"paywall_backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbCounter atomic.Int64

// NewTestDB поднимает изолированную in-memory SQLite с мигрированной схемой
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbCounter.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Не удалось открыть тестовую БД")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Одно соединение: SQLite сериализует запись, а shared cache иначе ловит SQLITE_LOCKED
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db), "Не удалось выполнить AutoMigrate")
	return db
}

// CreatePrincipal создает пользователя с указанным внешним id
func CreatePrincipal(t *testing.T, db *gorm.DB, ref string, hasPaid bool, revokedAt *time.Time) *models.Principal {
	t.Helper()

	p := &models.Principal{ExternalRef: ref, HasPaid: hasPaid, RevokedAt: revokedAt}
	require.NoError(t, db.Create(p).Error, "Не удалось создать principal %s", ref)
	return p
}

// CreateTransaction создает PENDING транзакцию; пустой param заменяется случайным
func CreateTransaction(t *testing.T, db *gorm.DB, principalID uint, param, amount string) *models.Transaction {
	t.Helper()

	if param == "" {
		param = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	tx := &models.Transaction{
		TransactionParam: param,
		PrincipalID:      principalID,
		Amount:           decimal.RequireFromString(amount),
		Status:           models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(tx).Error, "Не удалось создать транзакцию %s", param)
	return tx
}

// ReloadTransaction перечитывает транзакцию из БД
func ReloadTransaction(t *testing.T, db *gorm.DB, id uint) *models.Transaction {
	t.Helper()

	var tx models.Transaction
	require.NoError(t, db.First(&tx, id).Error)
	return &tx
}

// ReloadPrincipal перечитывает пользователя из БД
func ReloadPrincipal(t *testing.T, db *gorm.DB, id uint) *models.Principal {
	t.Helper()

	var p models.Principal
	require.NoError(t, db.First(&p, id).Error)
	return &p
}

// EventKinds возвращает виды событий журнала по транзакции в порядке записи
func EventKinds(t *testing.T, db *gorm.DB, transactionID uint) []models.EventKind {
	t.Helper()

	var events []models.PaymentEvent
	require.NoError(t, db.Where("transaction_id = ?", transactionID).Order("id").Find(&events).Error)

	kinds := make([]models.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}
