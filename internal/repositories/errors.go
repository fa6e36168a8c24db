package repositories

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound       = errors.New("transaction not found")
	ErrPrincipalNotFound         = errors.New("principal not found")
	ErrDuplicateTransactionParam = errors.New("transaction param already exists")
	// ErrNotPending - CAS проиграл: транзакция уже в терминальном статусе
	ErrNotPending = errors.New("transaction is not pending")
)

const PgErrUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation
}
