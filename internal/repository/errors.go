package repository

import (
	"context"
	"database/sql/driver"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const uniqueViolation = "23505"

// transientCodes are PostgreSQL SQLSTATEs after which a retry can succeed.
var transientCodes = map[string]struct{}{
	"55P03": {}, // lock_not_available
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"57014": {}, // query_canceled (statement/lock timeout)
	"57P01": {}, // admin_shutdown
}

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return "transient: " + e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// classify marks errors that a caller may retry with ErrTransient while
// keeping the original error in the chain.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	if isTransient(err) {
		return &transientError{err: err}
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}

	code := sqlState(err)
	if code == "" {
		return false
	}
	if _, ok := transientCodes[code]; ok {
		return true
	}
	// class 08: connection exceptions
	return strings.HasPrefix(code, "08")
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == uniqueViolation
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
