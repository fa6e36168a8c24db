package apperrors

import (
	"net/http"
)

const paymentDomain = "payment"

// =========================================================================
// Общие фабрики
// =========================================================================

// ErrNotFound оборачивает ошибку репозитория (404)
func ErrNotFound(err error, domain, message string) *AppError {
	return Wrap(err, CodeNotFound, domain, message, http.StatusNotFound)
}

// ErrConflict - общая фабрика для конфликтов (409)
func ErrConflict(err error, domain, message string) *AppError {
	return Wrap(err, CodeConflict, domain, message, http.StatusConflict)
}

// ErrInvalidOperation - невалидная операция (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrInvalidStatus - транзакция в неподходящем статусе.
// Для протокола это "отменено": ответ 200, т.к. подтверждение получено.
func ErrInvalidStatus(domain, message string) *AppError {
	return New(CodeInvalidStatus, domain, message, http.StatusOK)
}

// =========================================================================
// Платежная таксономия
// =========================================================================

// ErrAuthenticationFailure - неверная подпись или секрет. Никогда не мутирует состояние.
func ErrAuthenticationFailure(message string) *AppError {
	return New(CodeAuthenticationFailure, paymentDomain, message, http.StatusUnauthorized)
}

// ErrIntegrityViolation - несовпадение суммы (признак подмены)
func ErrIntegrityViolation(message string) *AppError {
	return New(CodeIntegrityViolation, paymentDomain, message, http.StatusBadRequest)
}

// ErrUpstreamRejection - Click сообщил об ошибке или перепроверка не подтвердила оплату
func ErrUpstreamRejection(err error, message string) *AppError {
	return Wrap(err, CodeUpstreamRejection, paymentDomain, message, http.StatusBadRequest)
}

// ErrAlreadySettled - повтор вызова по уже оплаченной транзакции, считается успехом
func ErrAlreadySettled() *AppError {
	return New(CodeAlreadySettled, paymentDomain, "Already paid", http.StatusOK)
}

// ErrTransientUnavailable - таймаут/сеть при проверке статуса. Транзакция остается PENDING.
func ErrTransientUnavailable(err error) *AppError {
	return Wrap(err, CodeTransientUnavailable, paymentDomain, "Payment verification temporarily unavailable", http.StatusServiceUnavailable)
}

// ErrMalformedRequest - в запросе нет обязательного поля или оно не парсится
func ErrMalformedRequest(message string) *AppError {
	return New(CodeValidationFailed, paymentDomain, message, http.StatusBadRequest)
}

// HasCode проверяет код AppError в цепочке ошибок
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
