package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrListingNotFound 记录不存在，或被归属范围过滤掉
	ErrListingNotFound = errors.New("listing not found")
	// ErrDuplicateSlug slug 唯一约束冲突
	ErrDuplicateSlug = errors.New("duplicate listing slug")
)

// pgUniqueViolation postgres 唯一约束冲突
const pgUniqueViolation = "23505"

// StoreError 其余数据库错误，保留原始信息便于后台排查
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("listing store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// translateError 把 gorm / 驱动错误归一为仓储错误
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrListingNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateSlug
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return ErrDuplicateSlug
	}
	return &StoreError{Op: op, Err: err}
}
