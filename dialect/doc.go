// Package dialect provides the database abstraction velograph stores its
// key-value pairs through.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database (modernc.org/sqlite)
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args []any) error
//	    Query(ctx context.Context, query string, args []any, v any) error
//	    Tx(ctx context.Context, write bool) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
//	type Tx interface {
//	    Exec(ctx context.Context, query string, args []any) error
//	    Query(ctx context.Context, query string, args []any, v any) error
//	    Commit() error
//	    Rollback() error
//	}
//
// # Sub-packages
//
//   - dialect/sql: database/sql based driver and per-operation statistics
//   - dialect/sql/sqlgraph: key-value table statements per dialect and
//     driver error classification
package dialect
