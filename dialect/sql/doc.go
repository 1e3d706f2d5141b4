// Package sql is the database/sql backed implementation of dialect.Driver.
//
// Driver wraps a *sql.DB and hands out Tx values bound to a single
// connection. Read-only transactions are started with sql.TxOptions.ReadOnly.
// Query stores its rows in a *Rows, which keeps callers independent from the
// concrete driver:
//
//	drv, err := sql.Open(dialect.SQLite, "file:graph.db")
//	if err != nil {
//	    return err
//	}
//	tx, err := drv.Tx(ctx, false)
//	if err != nil {
//	    return err
//	}
//	var rows sql.Rows
//	if err := tx.Query(ctx, "SELECT v FROM velograph_kv WHERE k = ?", []any{k}, &rows); err != nil {
//	    return errors.Join(err, tx.Rollback())
//	}
//	defer rows.Close()
//
// # Statistics
//
// StatsDriver counts statements per key-value operation (see sqlgraph.Op),
// accumulates their duration and reports slow statements through a hook.
// WithSlowStatementLog logs them with log/slog.
package sql
