package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate - запись с таким же (lower(name), birthdate) уже есть.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound - записи с таким id нет.
	ErrNotFound = errors.New("record not found")
	// ErrStore - любая ошибка слоя хранения.
	ErrStore = errors.New("store failure")
)

const pgUniqueViolation = "23505"

// isUniqueViolation распознаёт нарушение уникального индекса у обоих драйверов.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// modernc.org/sqlite не переводится gorm-ом, остаётся текст ошибки
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
