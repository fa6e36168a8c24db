package logger

import (
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

// Init инициализирует глобальный логгер
// В development пишет текст с debug-уровнем, иначе JSON
func Init(env string) {
	InitWithWriter(env, os.Stdout)
}

// InitWithWriter позволяет перенаправить вывод (используется в тестах)
func InitWithWriter(env string, w io.Writer) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// GetLogger возвращает глобальный логгер
func GetLogger() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

// ============================================
// Convenience функции
// ============================================

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal логирует ошибку и завершает программу
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// ============================================
// Специализированные логгеры
// ============================================

// PaymentLog фиксирует исход обработки платежного сигнала
// source: prepare / complete / webhook / reconcile / override
func PaymentLog(source, transactionParam, outcome string, err error) {
	fields := []any{
		"source", source,
		"transaction_param", transactionParam,
		"outcome", outcome,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Warn("payment signal rejected", fields...)
	} else {
		GetLogger().Info("payment signal processed", fields...)
	}
}

// WorkerLog логирует операцию фонового воркера
func WorkerLog(worker, operation string, err error) {
	fields := []any{
		"worker", worker,
		"operation", operation,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Info("worker operation completed", fields...)
	}
}
