package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	requestIDKey        contextKey = "request_id"
	principalRefKey     contextKey = "principal_ref"
	transactionParamKey contextKey = "transaction_param"
)

// ============================================
// Context operations
// ============================================

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithPrincipalRef добавляет внешний идентификатор пользователя (telegram id)
func WithPrincipalRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, principalRefKey, ref)
}

// WithTransactionParam добавляет merchant_trans_id в context
func WithTransactionParam(ctx context.Context, param string) context.Context {
	return context.WithValue(ctx, transactionParamKey, param)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// ============================================
// Context-aware логирование
// ============================================

// FromContext создает логгер с полями из context
func FromContext(ctx context.Context) *slog.Logger {
	logger := GetLogger()

	var fields []any
	for _, key := range []contextKey{requestIDKey, principalRefKey, transactionParamKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, string(key), v)
		}
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}
	return logger
}

func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError логирует error с error объектом
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	fields := append([]any{"error", err.Error()}, args...)
	FromContext(ctx).Error(msg, fields...)
}
