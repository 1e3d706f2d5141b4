package sql

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/syssam/velograph/dialect"
	"github.com/syssam/velograph/dialect/sql/sqlgraph"
)

// QueryStats counts the statements of a StatsDriver per key-value operation.
type QueryStats struct {
	ops  [sqlgraph.NumOps]opCounters
	slow atomic.Int64
}

type opCounters struct {
	count    atomic.Int64
	errors   atomic.Int64
	duration atomic.Int64 // nanoseconds
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	snap := StatsSnapshot{SlowStatements: s.slow.Load()}
	for op := range s.ops {
		c := &s.ops[op]
		snap.Ops[op] = OpStats{
			Count:    c.count.Load(),
			Errors:   c.errors.Load(),
			Duration: time.Duration(c.duration.Load()),
		}
	}
	return snap
}

// OpStats holds the statistics of one operation.
type OpStats struct {
	Count    int64
	Errors   int64
	Duration time.Duration
}

// StatsSnapshot is a point-in-time snapshot of the statistics, indexed by
// sqlgraph.Op.
type StatsSnapshot struct {
	Ops            [sqlgraph.NumOps]OpStats
	SlowStatements int64
}

// Op returns the statistics of op.
func (s StatsSnapshot) Op(op sqlgraph.Op) OpStats {
	return s.Ops[op]
}

// Total sums the statistics of all operations.
func (s StatsSnapshot) Total() OpStats {
	var t OpStats
	for _, o := range s.Ops {
		t.Count += o.Count
		t.Errors += o.Errors
		t.Duration += o.Duration
	}
	return t
}

// String lists the operations that ran, then the slow statement and error
// totals.
//
//	get=3 set=4 scan=1 slow=0 errors=0 duration=1.2ms
func (s StatsSnapshot) String() string {
	var b strings.Builder
	for op, o := range s.Ops {
		if o.Count > 0 {
			fmt.Fprintf(&b, "%s=%d ", sqlgraph.Op(op), o.Count)
		}
	}
	t := s.Total()
	fmt.Fprintf(&b, "slow=%d errors=%d duration=%s", s.SlowStatements, t.Errors, t.Duration)
	return b.String()
}

// SlowStatementHook is called for statements slower than the threshold.
// Statement arguments are not passed since they hold raw record keys.
type SlowStatementHook func(ctx context.Context, op sqlgraph.Op, query string, duration time.Duration)

// StatsDriver wraps a Driver and records every statement under the
// key-value operation it performs.
type StatsDriver struct {
	*Driver
	stmts     *sqlgraph.Statements
	stats     *QueryStats
	threshold time.Duration
	hook      SlowStatementHook
}

// StatsOption configures the StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow. Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		s.threshold = d
	}
}

// WithSlowStatementHook sets the callback for slow statements.
func WithSlowStatementHook(hook SlowStatementHook) StatsOption {
	return func(s *StatsDriver) {
		s.hook = hook
	}
}

// WithSlowStatementLog logs slow statements to l at warn level.
func WithSlowStatementLog(l *slog.Logger) StatsOption {
	return WithSlowStatementHook(func(ctx context.Context, op sqlgraph.Op, query string, duration time.Duration) {
		l.WarnContext(ctx, "slow statement", "op", op.String(), "duration", duration, "query", query)
	})
}

// NewStatsDriver wraps drv. Statements are classified with stmts.
//
//	drv, _ := sql.Open(dialect.SQLite, "file:graph.db")
//	stmts, _ := sqlgraph.For(dialect.SQLite, "")
//	sd := sql.NewStatsDriver(drv, stmts, sql.WithSlowThreshold(200*time.Millisecond))
func NewStatsDriver(drv *Driver, stmts *sqlgraph.Statements, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{
		Driver:    drv,
		stmts:     stmts,
		stats:     &QueryStats{},
		threshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the statistics collected so far.
func (d *StatsDriver) QueryStats() *QueryStats {
	return d.stats
}

// Query executes a query and records it.
func (d *StatsDriver) Query(ctx context.Context, query string, args []any, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, query, start, err)
	return err
}

// Exec executes a statement and records it.
func (d *StatsDriver) Exec(ctx context.Context, query string, args []any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args)
	d.record(ctx, query, start, err)
	return err
}

func (d *StatsDriver) record(ctx context.Context, query string, start time.Time, err error) {
	duration := time.Since(start)
	op := d.stmts.Op(query)
	c := &d.stats.ops[op]
	c.count.Add(1)
	c.duration.Add(int64(duration))
	if err != nil {
		c.errors.Add(1)
	}
	if duration > d.threshold {
		d.stats.slow.Add(1)
		if d.hook != nil {
			d.hook(ctx, op, query, duration)
		}
	}
}

// Tx starts a transaction whose statements are recorded too.
func (d *StatsDriver) Tx(ctx context.Context, write bool) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx, write)
	if err != nil {
		return nil, err
	}
	return &StatsTx{Tx: tx, driver: d}, nil
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query executes a query within the transaction and records it.
func (tx *StatsTx) Query(ctx context.Context, query string, args []any, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, query, start, err)
	return err
}

// Exec executes a statement within the transaction and records it.
func (tx *StatsTx) Exec(ctx context.Context, query string, args []any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args)
	tx.driver.record(ctx, query, start, err)
	return err
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
)
