package database

import (
	"fmt"

	"paywall_backend/internal/logger"
	"paywall_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// ConnectGorm открывает пул к основной БД и проверяет соединение
func ConnectGorm(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return db, nil
}

// Models - все таблицы платежного ядра
func Models() []interface{} {
	return []interface{}{
		&models.Principal{},
		&models.Transaction{},
		&models.PaymentEvent{},
	}
}

// AutoMigrate выполняет миграцию всех моделей
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	logger.Info("AutoMigrate успешно завершен")
	return nil
}
