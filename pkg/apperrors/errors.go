package apperrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError - ошибка приложения с кодом таксономии и HTTP-статусом.
// Причина (Err) в JSON не попадает: клиент видит только Code, Domain и Message.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Domain   string      `json:"domain"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s (%v)", e.Domain, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Domain, e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Status - HTTP-статус ответа. Ошибка без статуса считается внутренней.
func (e *AppError) Status() int {
	if e.HTTPCode == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPCode
}

// Transient - временная недоступность внешней системы: шлюз повторит доставку,
// состояние транзакции не менялось
func (e *AppError) Transient() bool {
	return e.Code == CodeTransientUnavailable
}

// ServerFault - 5xx, который стоит логировать как ошибку сервера
func (e *AppError) ServerFault() bool {
	return e.Status() >= http.StatusInternalServerError && !e.Transient()
}

// New - ошибка без причины
func New(code ErrorCode, domain, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Domain:   domain,
		Message:  message,
		HTTPCode: httpCode,
	}
}

// Wrap - ошибка с причиной, доступной через errors.Is/As
func Wrap(err error, code ErrorCode, domain, message string, httpCode int) *AppError {
	e := New(code, domain, message, httpCode)
	e.Err = err
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type public struct {
		Code    ErrorCode   `json:"code"`
		Domain  string      `json:"domain"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&public{
		Code:    e.Code,
		Domain:  e.Domain,
		Message: e.Message,
		Details: e.Details,
	})
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// InternalError оборачивает неизвестную системную ошибку
func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "system", "Internal server error", http.StatusInternalServerError)
}

// ValidationError - 400 с ошибками по полям в Details
func ValidationError(details interface{}) *AppError {
	return New(CodeValidationFailed, "validation", "Validation failed", http.StatusBadRequest).WithDetails(details)
}

func NewUnauthorizedError(message string) *AppError {
	return New(CodeUnauthorized, "auth", message, http.StatusUnauthorized)
}

func NewForbiddenError(message string) *AppError {
	return New(CodeForbidden, "auth", message, http.StatusForbidden)
}

func NewBadRequestError(message string) *AppError {
	return New(CodeValidationFailed, "request", message, http.StatusBadRequest)
}
