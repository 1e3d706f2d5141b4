package dialect

import "context"

// Dialect names for supported SQL backends.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// ExecQuerier wraps the Exec and Query methods.
type ExecQuerier interface {
	// Exec executes a statement that does not return rows.
	Exec(ctx context.Context, query string, args []any) error
	// Query executes a statement and stores its rows in v, which must be a
	// pointer to the row type of the driver.
	Query(ctx context.Context, query string, args []any, v any) error
}

// Driver is the interface that wraps all necessary operations for storage drivers.
type Driver interface {
	ExecQuerier
	// Tx starts a new transaction. A transaction started with write false
	// is read-only and the database rejects its writes where it can.
	Tx(ctx context.Context, write bool) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}
