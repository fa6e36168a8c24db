package dto

import (
	"encoding/json"
	"time"

	"paywall_backend/internal/models"
	"paywall_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

// WebhookRequest - уведомление Click. tx и transaction_param - синонимы,
// amount может прийти и числом, и строкой.
type WebhookRequest struct {
	Tx               string          `json:"tx"`
	TransactionParam string          `json:"transaction_param"`
	Status           string          `json:"status"`
	Amount           json.RawMessage `json:"amount"`
	UserID           json.RawMessage `json:"user_id"`
}

// Token возвращает идентификатор корреляции
func (r *WebhookRequest) Token() string {
	if r.Tx != "" {
		return r.Tx
	}
	return r.TransactionParam
}

type WebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type CreateTransactionRequest struct {
	PrincipalRef string `json:"principal_ref" validate:"required,max=64"`
	Username     string `json:"username" validate:"max=128"`
}

type CreateTransactionResponse struct {
	TransactionID    uint            `json:"transaction_id"`
	TransactionParam string          `json:"transaction_param"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentURL       string          `json:"payment_url"`
	CreatedAt        time.Time       `json:"created_at"`
}

type EntitlementResponse struct {
	PrincipalRef string `json:"principal_ref"`
	Entitled     bool   `json:"entitled"`
}

type CheckTransactionRequest struct {
	PrincipalRef string `json:"principal_ref" validate:"required,max=64"`
}

type CheckTransactionResponse struct {
	TransactionParam string               `json:"transaction_param"`
	Status           models.PaymentStatus `json:"status"`
	Entitled         bool                 `json:"entitled"`
}

type OverrideResponse struct {
	PrincipalRef  string     `json:"principal_ref"`
	HasPaid       bool       `json:"has_paid"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	TransactionID *uint      `json:"transaction_id,omitempty"`
}

type TransactionDetails struct {
	Transaction *models.Transaction   `json:"transaction"`
	Events      []models.PaymentEvent `json:"events"`
}

type PendingListResponse struct {
	Items    []models.Transaction `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

type StatsResponse = repositories.PaymentStats

type HealthResponse struct {
	Status             string `json:"status"`
	Database           string `json:"database"`
	WebhookAuthEnabled bool   `json:"webhook_auth_enabled"`
	StatusAPIEnabled   bool   `json:"status_api_enabled"`
	ExternalLedger     bool   `json:"external_ledger_enabled"`
	WSClients          int    `json:"ws_clients"`
}
