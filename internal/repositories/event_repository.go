package repositories

import (
	"paywall_backend/internal/models"

	"gorm.io/gorm"
)

// EventRepository - журнал аудита платежей, только добавление
type EventRepository interface {
	Append(db *gorm.DB, event *models.PaymentEvent) error
	ListByTransaction(db *gorm.DB, transactionID uint) ([]models.PaymentEvent, error)
	ListByPrincipal(db *gorm.DB, principalID uint, limit int) ([]models.PaymentEvent, error)
}

type EventRepositoryImpl struct{}

func NewEventRepository() EventRepository {
	return &EventRepositoryImpl{}
}

func (r *EventRepositoryImpl) Append(db *gorm.DB, event *models.PaymentEvent) error {
	return db.Create(event).Error
}

func (r *EventRepositoryImpl) ListByTransaction(db *gorm.DB, transactionID uint) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := db.Where("transaction_id = ?", transactionID).Order("id ASC").Find(&events).Error
	return events, err
}

func (r *EventRepositoryImpl) ListByPrincipal(db *gorm.DB, principalID uint, limit int) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := db.Where("principal_id = ?", principalID).Order("id DESC").Limit(limit).Find(&events).Error
	return events, err
}
