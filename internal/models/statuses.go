package models

type PaymentStatus string
type EventKind string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"

	EventCreated          EventKind = "created"
	EventAmountMismatch   EventKind = "amount_mismatch"
	EventUpstreamFailure  EventKind = "upstream_failure"
	EventManualApproval   EventKind = "manual_approval"
	EventManualRevocation EventKind = "manual_revocation"
	EventManualCancel     EventKind = "manual_cancellation"
	EventPaid             EventKind = "paid"
	EventVerification     EventKind = "verification"
)

// IsTerminal - из терминального статуса переходов нет
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

// Причины отказа, фиксируемые в журнале
const (
	ReasonAmountMismatch   = "amount_mismatch"
	ReasonClickVerifyFail  = "click_verify_failed"
	ReasonClickNotPaid     = "click_not_paid"
	ReasonClickVerifyError = "click_verify_error"
)
