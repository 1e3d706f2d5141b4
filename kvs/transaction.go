package kvs

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/dialect"
	"github.com/syssam/velograph/dialect/sql"
	"github.com/syssam/velograph/dialect/sql/sqlgraph"
)

// KeyValue is a pair returned by Scan.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// Transaction is a key-value transaction. It is safe for concurrent use,
// but operations are executed one at a time.
type Transaction struct {
	mu    sync.Mutex
	tx    dialect.Tx
	stmts *sqlgraph.Statements
	log   *slog.Logger
	write bool
	done  bool
}

// Writable reports whether the transaction accepts writes.
func (t *Transaction) Writable() bool {
	return t.write
}

// Logger returns the logger of the datastore that started the transaction.
func (t *Transaction) Logger() *slog.Logger {
	return t.log
}

// Closed reports whether the transaction was committed or cancelled.
func (t *Transaction) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Lock acquires exclusive access to the transaction. Operations on the
// transaction itself block until Unlock is called on the returned handle.
func (t *Transaction) Lock() *Locked {
	t.mu.Lock()
	return &Locked{t: t}
}

// Exists reports whether key is set.
func (t *Transaction) Exists(ctx context.Context, key []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exists(ctx, key)
}

// Get returns the value of key, or nil if it is not set.
func (t *Transaction) Get(ctx context.Context, key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(ctx, key)
}

// Set stores val under key, replacing any previous value.
func (t *Transaction) Set(ctx context.Context, key, val []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.set(ctx, key, val)
}

// Del removes key. Removing a missing key is not an error.
func (t *Transaction) Del(ctx context.Context, key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(true); err != nil {
		return err
	}
	return velograph.NewStorageError("del", t.tx.Exec(ctx, t.stmts.Del, []any{key}))
}

// Scan returns up to limit pairs with beg <= key < end in key order.
// A nil end scans to the end of the keyspace; a limit <= 0 means no limit.
func (t *Transaction) Scan(ctx context.Context, beg, end []byte, limit int) ([]KeyValue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(false); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = math.MaxInt32
	}
	if beg == nil {
		beg = []byte{}
	}
	var (
		rows sql.Rows
		err  error
	)
	if end == nil {
		err = t.tx.Query(ctx, t.stmts.ScanFrom, []any{beg, limit}, &rows)
	} else {
		err = t.tx.Query(ctx, t.stmts.Scan, []any{beg, end, limit}, &rows)
	}
	if err != nil {
		return nil, velograph.NewStorageError("scan", err)
	}
	defer rows.Close()
	var kvs []KeyValue
	for rows.Next() {
		var kv KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, velograph.NewStorageError("scan", err)
		}
		kvs = append(kvs, kv)
	}
	if err := rows.Err(); err != nil {
		return nil, velograph.NewStorageError("scan", err)
	}
	return kvs, nil
}

// Commit makes the writes of the transaction visible.
func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return velograph.ErrTxFinished
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return velograph.NewStorageError("commit", err)
	}
	t.log.Debug("transaction committed")
	return nil
}

// Cancel discards the writes of the transaction.
func (t *Transaction) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return velograph.ErrTxFinished
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		return velograph.NewStorageError("cancel", err)
	}
	t.log.Debug("transaction cancelled")
	return nil
}

func (t *Transaction) check(write bool) error {
	switch {
	case t.done:
		return velograph.ErrTxFinished
	case write && !t.write:
		return velograph.ErrTxReadonly
	}
	return nil
}

func (t *Transaction) exists(ctx context.Context, key []byte) (bool, error) {
	if err := t.check(false); err != nil {
		return false, err
	}
	var rows sql.Rows
	if err := t.tx.Query(ctx, t.stmts.Exists, []any{key}, &rows); err != nil {
		return false, velograph.NewStorageError("exists", err)
	}
	defer rows.Close()
	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, velograph.NewStorageError("exists", err)
	}
	return found, nil
}

func (t *Transaction) get(ctx context.Context, key []byte) ([]byte, error) {
	if err := t.check(false); err != nil {
		return nil, err
	}
	var rows sql.Rows
	if err := t.tx.Query(ctx, t.stmts.Get, []any{key}, &rows); err != nil {
		return nil, velograph.NewStorageError("get", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, velograph.NewStorageError("get", rows.Err())
	}
	var v []byte
	if err := rows.Scan(&v); err != nil {
		return nil, velograph.NewStorageError("get", err)
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (t *Transaction) set(ctx context.Context, key, val []byte) error {
	if err := t.check(true); err != nil {
		return err
	}
	if val == nil {
		val = []byte{}
	}
	return velograph.NewStorageError("set", t.tx.Exec(ctx, t.stmts.Set, []any{key, val}))
}

// Locked is an exclusive section of a Transaction obtained with Lock.
type Locked struct {
	t *Transaction
}

// Exists reports whether key is set.
func (l *Locked) Exists(ctx context.Context, key []byte) (bool, error) {
	return l.t.exists(ctx, key)
}

// Get returns the value of key, or nil if it is not set.
func (l *Locked) Get(ctx context.Context, key []byte) ([]byte, error) {
	return l.t.get(ctx, key)
}

// Set stores val under key, replacing any previous value.
func (l *Locked) Set(ctx context.Context, key, val []byte) error {
	return l.t.set(ctx, key, val)
}

// Unlock releases the exclusive section. The handle must not be used afterwards.
func (l *Locked) Unlock() {
	l.t.mu.Unlock()
}
