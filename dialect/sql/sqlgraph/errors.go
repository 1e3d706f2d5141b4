package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes of class 40 (transaction rollback).
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// MySQL error numbers for lock conflicts.
const (
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// SQLite primary result codes for lock conflicts.
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// sqliteCoder is implemented by modernc.org/sqlite errors. Extended result
// codes carry the primary code in their low byte.
type sqliteCoder interface {
	Code() int
}

// IsRetryable reports if the error resulted from a conflict with a concurrent
// transaction, so that running the whole transaction again may succeed.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check for PostgreSQL pq.Error code
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgSerializationFailure || pqErr.Code == pgDeadlockDetected
	}

	// Check for MySQL error number
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDeadlock || myErr.Number == mysqlLockWaitTimeout
	}

	// Check for SQLite result code
	var liteErr sqliteCoder
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}

	// Fallback to string matching for drivers that don't expose codes
	return containsAny(err.Error(),
		"database is locked",         // SQLite
		"database table is locked",   // SQLite
		"could not serialize access", // Postgres
		"deadlock detected",          // Postgres
		"Deadlock found when trying", // MySQL
		"Lock wait timeout exceeded", // MySQL
	)
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
