package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// PaymentEvent - запись журнала аудита. Только добавление, без обновления и удаления.
type PaymentEvent struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	TransactionID *uint          `gorm:"index" json:"transaction_id,omitempty"`
	PrincipalID   uint           `gorm:"not null;index" json:"principal_id"`
	Kind          EventKind      `gorm:"type:varchar(32);not null;index" json:"kind"`
	Actor         string         `gorm:"size:64" json:"actor"`
	Reason        string         `gorm:"size:128" json:"reason,omitempty"`
	Payload       datatypes.JSON `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// EventPayload - вариант журнала, по одному типу на EventKind
type EventPayload interface {
	Kind() EventKind
}

type CreatedPayload struct {
	Amount string `json:"amount"`
	Source string `json:"source"`
}

type AmountMismatchPayload struct {
	Expected string `json:"expected"`
	Received string `json:"received"`
	Source   string `json:"source"`
}

type UpstreamFailurePayload struct {
	Source    string `json:"source"`
	ErrorCode int    `json:"error_code,omitempty"`
	ErrorNote string `json:"error_note,omitempty"`
}

type ManualApprovalPayload struct {
	Operator string    `json:"operator"`
	At       time.Time `json:"at"`
}

type ManualRevocationPayload struct {
	Operator string    `json:"operator"`
	At       time.Time `json:"at"`
}

type ManualCancelPayload struct {
	Operator string    `json:"operator"`
	At       time.Time `json:"at"`
}

type PaidPayload struct {
	Source               string `json:"source"`
	GatewayTransactionID string `json:"gateway_transaction_id,omitempty"`
	GatewayCorrelationID string `json:"gateway_correlation_id,omitempty"`
}

// VerificationPayload - сырой ответ Click status API
type VerificationPayload struct {
	ErrorCode     int    `json:"error_code"`
	ErrorNote     string `json:"error_note"`
	PaymentID     int64  `json:"payment_id"`
	PaymentStatus int    `json:"payment_status"`
}

func (CreatedPayload) Kind() EventKind { return EventCreated }
func (AmountMismatchPayload) Kind() EventKind { return EventAmountMismatch }
func (UpstreamFailurePayload) Kind() EventKind { return EventUpstreamFailure }
func (ManualApprovalPayload) Kind() EventKind { return EventManualApproval }
func (ManualRevocationPayload) Kind() EventKind { return EventManualRevocation }
func (ManualCancelPayload) Kind() EventKind { return EventManualCancel }
func (PaidPayload) Kind() EventKind { return EventPaid }
func (VerificationPayload) Kind() EventKind { return EventVerification }

// NewPaymentEvent сериализует вариант в строку журнала
func NewPaymentEvent(transactionID *uint, principalID uint, actor, reason string, payload EventPayload) (*PaymentEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", payload.Kind(), err)
	}

	return &PaymentEvent{
		TransactionID: transactionID,
		PrincipalID:   principalID,
		Kind:          payload.Kind(),
		Actor:         actor,
		Reason:        reason,
		Payload:       datatypes.JSON(raw),
	}, nil
}

// Decode возвращает конкретный вариант по Kind
func (e *PaymentEvent) Decode() (EventPayload, error) {
	var payload EventPayload
	switch e.Kind {
	case EventCreated:
		payload = &CreatedPayload{}
	case EventAmountMismatch:
		payload = &AmountMismatchPayload{}
	case EventUpstreamFailure:
		payload = &UpstreamFailurePayload{}
	case EventManualApproval:
		payload = &ManualApprovalPayload{}
	case EventManualRevocation:
		payload = &ManualRevocationPayload{}
	case EventManualCancel:
		payload = &ManualCancelPayload{}
	case EventPaid:
		payload = &PaidPayload{}
	case EventVerification:
		payload = &VerificationPayload{}
	default:
		return nil, fmt.Errorf("unknown payment event kind %q", e.Kind)
	}

	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", e.Kind, err)
		}
	}
	return payload, nil
}
