// Package kvs is the transactional key-value store velograph persists
// records, adjacency entries and graph counts in.
//
// A Datastore keeps all pairs in one SQL table (see dialect/sql/sqlgraph)
// and hands out Transactions. Writes become visible when the transaction
// commits and are discarded when it is cancelled:
//
//	ds, err := kvs.Open(ctx, dialect.SQLite, "file:graph.db")
//	if err != nil {
//	    return err
//	}
//	defer ds.Close()
//	err = ds.Update(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
//	    return tx.Set(ctx, k, v)
//	})
package kvs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/dialect"
	"github.com/syssam/velograph/dialect/sql"
	"github.com/syssam/velograph/dialect/sql/sqlgraph"
)

// Datastore is a key-value store on top of a SQL database.
type Datastore struct {
	drv     dialect.Driver
	stmts   *sqlgraph.Statements
	log     *slog.Logger
	retries int
	stats   *sql.QueryStats
}

type config struct {
	log      *slog.Logger
	table    string
	retries  int
	stats    bool
	statsOpt []sql.StatsOption
}

// Option configures a Datastore.
type Option func(*config)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.log = l
	}
}

// WithTable overrides the name of the key-value table.
func WithTable(name string) Option {
	return func(c *config) {
		c.table = name
	}
}

// WithRetries sets how many times Update runs a transaction again after a
// conflict with a concurrent transaction. Default is 0.
func WithRetries(n int) Option {
	return func(c *config) {
		c.retries = n
	}
}

// WithStats collects statement statistics per key-value operation, see
// Datastore.Stats.
// It only applies to datastores created with Open.
func WithStats(opts ...sql.StatsOption) Option {
	return func(c *config) {
		c.stats = true
		c.statsOpt = append(c.statsOpt, opts...)
	}
}

// Open opens the database with the given database/sql driver name, which
// doubles as the dialect name, and prepares the key-value table.
func Open(ctx context.Context, driverName, source string, opts ...Option) (*Datastore, error) {
	cfg := newConfig(opts)
	stmts, err := sqlgraph.For(driverName, cfg.table)
	if err != nil {
		return nil, fmt.Errorf("kvs: %w", err)
	}
	drv, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("kvs: open %s: %w", driverName, err)
	}
	if drv.Dialect() == dialect.SQLite {
		// SQLite allows one writer; transactions queue for the connection
		// instead of failing with SQLITE_BUSY.
		drv.DB().SetMaxOpenConns(1)
	}
	var (
		d     dialect.Driver = drv
		stats *sql.QueryStats
	)
	if cfg.stats {
		sd := sql.NewStatsDriver(drv, stmts, cfg.statsOpt...)
		d, stats = sd, sd.QueryStats()
	}
	ds, err := newDatastore(ctx, d, stmts, cfg)
	if err != nil {
		return nil, errors.Join(err, drv.Close())
	}
	ds.stats = stats
	return ds, nil
}

// New creates a Datastore on an existing driver and prepares the key-value table.
func New(ctx context.Context, drv dialect.Driver, opts ...Option) (*Datastore, error) {
	cfg := newConfig(opts)
	stmts, err := sqlgraph.For(drv.Dialect(), cfg.table)
	if err != nil {
		return nil, fmt.Errorf("kvs: %w", err)
	}
	return newDatastore(ctx, drv, stmts, cfg)
}

func newConfig(opts []Option) *config {
	cfg := &config{log: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func newDatastore(ctx context.Context, drv dialect.Driver, stmts *sqlgraph.Statements, cfg *config) (*Datastore, error) {
	for _, q := range stmts.Create {
		if err := drv.Exec(ctx, q, nil); err != nil {
			return nil, fmt.Errorf("kvs: creating table: %w", err)
		}
	}
	return &Datastore{
		drv:     drv,
		stmts:   stmts,
		log:     cfg.log,
		retries: cfg.retries,
	}, nil
}

// Stats returns the statement statistics, or nil when WithStats was not used.
func (ds *Datastore) Stats() *sql.QueryStats {
	return ds.stats
}

// Close closes the underlying database.
func (ds *Datastore) Close() error {
	return ds.drv.Close()
}

// Transaction starts a transaction. Read-only transactions reject writes,
// and are started read-only in the database as well.
// The caller must finish it with Commit or Cancel.
func (ds *Datastore) Transaction(ctx context.Context, write bool) (*Transaction, error) {
	tx, err := ds.drv.Tx(ctx, write)
	if err != nil {
		return nil, velograph.NewStorageError("begin", err)
	}
	ds.log.DebugContext(ctx, "transaction started", "write", write)
	return &Transaction{
		tx:    tx,
		stmts: ds.stmts,
		log:   ds.log,
		write: write,
	}, nil
}

// Update runs fn in a write transaction and commits it. The transaction is
// cancelled when fn fails. Conflicts with concurrent transactions are
// retried as configured by WithRetries; fn must be safe to run again.
func (ds *Datastore) Update(ctx context.Context, fn func(context.Context, *Transaction) error) error {
	for attempt := 0; ; attempt++ {
		err := ds.run(ctx, true, fn)
		if err == nil || attempt >= ds.retries || !sqlgraph.IsRetryable(err) || ctx.Err() != nil {
			return err
		}
		ds.log.DebugContext(ctx, "retrying transaction", "attempt", attempt+1, "error", err)
	}
}

// View runs fn in a read-only transaction, which is always cancelled.
func (ds *Datastore) View(ctx context.Context, fn func(context.Context, *Transaction) error) error {
	return ds.run(ctx, false, fn)
}

func (ds *Datastore) run(ctx context.Context, write bool, fn func(context.Context, *Transaction) error) error {
	tx, err := ds.Transaction(ctx, write)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		if rerr := tx.Cancel(); rerr != nil {
			return &velograph.RollbackError{Err: err, Rollback: rerr}
		}
		return err
	}
	if !write {
		return tx.Cancel()
	}
	return tx.Commit()
}
