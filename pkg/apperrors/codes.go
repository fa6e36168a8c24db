package apperrors

// ErrorCode - тип для кодов ошибок
type ErrorCode string

// Общие коды ошибок
const (
	CodeInternalError        ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError        ErrorCode = "DATABASE_ERROR"
	CodeExternalServiceError ErrorCode = "EXTERNAL_SERVICE_ERROR"

	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Таксономия исходов обработки платежных сигналов.
// Целочисленные коды Click строятся из них только на границе (handlers).
const (
	CodeAuthenticationFailure ErrorCode = "AUTHENTICATION_FAILURE"
	CodeIntegrityViolation    ErrorCode = "INTEGRITY_VIOLATION"
	CodeUpstreamRejection     ErrorCode = "UPSTREAM_REJECTION"
	CodeAlreadySettled        ErrorCode = "ALREADY_SETTLED"
	CodeTransientUnavailable  ErrorCode = "TRANSIENT_UNAVAILABLE"
)
