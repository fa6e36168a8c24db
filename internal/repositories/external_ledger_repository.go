package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// ExternalPayment - ответ внешней БД платежей
type ExternalPayment struct {
	HasPaid     bool
	PaymentDate *time.Time
}

// ExternalLedger - внешняя (чужая) БД с историей оплат, только чтение
type ExternalLedger interface {
	HasValidPayment(ctx context.Context, principalRef string) (*ExternalPayment, error)
}

type SQLExternalLedger struct {
	db    *sql.DB
	query string
}

// OpenExternalLedger открывает пул к внешней postgres-БД через lib/pq
func OpenExternalLedger(dsn, table string) (*SQLExternalLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open external ledger: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	return NewSQLExternalLedger(db, table), nil
}

func NewSQLExternalLedger(db *sql.DB, table string) *SQLExternalLedger {
	query := fmt.Sprintf(`
		SELECT paid_at FROM %s
		WHERE telegram_id = $1 AND status = 'paid'
		ORDER BY paid_at DESC
		LIMIT 1
	`, pq.QuoteIdentifier(table))

	return &SQLExternalLedger{db: db, query: query}
}

func (l *SQLExternalLedger) HasValidPayment(ctx context.Context, principalRef string) (*ExternalPayment, error) {
	var paidAt sql.NullTime

	err := l.db.QueryRowContext(ctx, l.query, principalRef).Scan(&paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &ExternalPayment{HasPaid: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("external ledger query: %w", err)
	}

	result := &ExternalPayment{HasPaid: true}
	if paidAt.Valid {
		t := paidAt.Time
		result.PaymentDate = &t
	}
	return result, nil
}

func (l *SQLExternalLedger) Close() error {
	return l.db.Close()
}

// NoopExternalLedger используется, когда внешняя БД не настроена
type NoopExternalLedger struct{}

func (NoopExternalLedger) HasValidPayment(ctx context.Context, principalRef string) (*ExternalPayment, error) {
	return &ExternalPayment{HasPaid: false}, nil
}
