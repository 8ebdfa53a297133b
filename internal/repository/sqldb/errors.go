package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// PostgreSQL error codes that mean "gave up waiting, try again".
var retryablePostgresCodes = map[pq.ErrorCode]bool{
	"55P03": true, // lock_not_available (lock_timeout)
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"57014": true, // query_canceled (statement_timeout)
}

// dbError wraps err with msg and tags it with the entity error it implies.
func dbError(msg string, err error) error {
	switch {
	case isLockTimeout(err):
		return fmt.Errorf("%s: %w: %w", msg, entity.ErrLockTimeout, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", msg, entity.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}

// notFoundOr maps sql.ErrNoRows to entity.ErrNotFound.
func notFoundOr(msg string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, entity.ErrNotFound)
	}
	return dbError(msg, err)
}

func isLockTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryablePostgresCodes[pqErr.Code]
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
