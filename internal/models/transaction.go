package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction - одна попытка оплаты. Не удаляется; терминальные статусы - история.
type Transaction struct {
	BaseModel
	TransactionParam     string          `gorm:"size:64;uniqueIndex;not null" json:"transaction_param"`
	PrincipalID          uint            `gorm:"not null;index" json:"principal_id"`
	Amount               decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Status               PaymentStatus   `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	GatewayTransactionID *string         `gorm:"size:64" json:"gateway_transaction_id,omitempty"`
	GatewayCorrelationID *string         `gorm:"size:64" json:"gateway_correlation_id,omitempty"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`

	Principal *Principal `gorm:"foreignKey:PrincipalID" json:"principal,omitempty"`
}

func (Transaction) TableName() string {
	return "payments"
}

// AmountMatches - точное сравнение суммы с фиксированной точкой
func (t *Transaction) AmountMatches(amount decimal.Decimal) bool {
	return t.Amount.Equal(amount)
}
