package kvs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/catalog"
	"github.com/syssam/velograph/dialect"
	"github.com/syssam/velograph/dialect/sql"
	"github.com/syssam/velograph/dialect/sql/sqlgraph"
	"github.com/syssam/velograph/key"
	"github.com/syssam/velograph/record"
)

func openTest(t *testing.T, opts ...Option) *Datastore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kv.db")
	ds, err := Open(context.Background(), dialect.SQLite, "file:"+path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds
}

func TestTransactionBasics(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()

	err := ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		require.True(t, tx.Writable())
		ok, err := tx.Exists(ctx, []byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)

		v, err := tx.Get(ctx, []byte("a"))
		require.NoError(t, err)
		assert.Nil(t, v)

		require.NoError(t, tx.Set(ctx, []byte("a"), []byte("1")))
		require.NoError(t, tx.Set(ctx, []byte("b"), nil))
		require.NoError(t, tx.Set(ctx, []byte("a"), []byte("2")))
		return nil
	})
	require.NoError(t, err)

	err = ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		v, err := tx.Get(ctx, []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)

		v, err = tx.Get(ctx, []byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte{}, v)

		ok, err := tx.Exists(ctx, []byte("b"))
		require.NoError(t, err)
		assert.True(t, ok)

		assert.ErrorIs(t, tx.Set(ctx, []byte("c"), nil), velograph.ErrTxReadonly)
		assert.ErrorIs(t, tx.Del(ctx, []byte("a")), velograph.ErrTxReadonly)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		require.NoError(t, tx.Del(ctx, []byte("a")))
		return tx.Del(ctx, []byte("missing"))
	}))
	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		ok, err := tx.Exists(ctx, []byte("a"))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))
}

func TestTransactionCancel(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()

	failed := errors.New("failed")
	err := ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		require.NoError(t, tx.Set(ctx, []byte("a"), []byte("1")))
		return failed
	})
	require.ErrorIs(t, err, failed)

	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		v, err := tx.Get(ctx, []byte("a"))
		require.NoError(t, err)
		assert.Nil(t, v)
		return nil
	}))

	tx, err := ds.Transaction(ctx, true)
	require.NoError(t, err)
	require.NoError(t, tx.Cancel())
	assert.True(t, tx.Closed())
	assert.ErrorIs(t, tx.Cancel(), velograph.ErrTxFinished)
	assert.ErrorIs(t, tx.Commit(), velograph.ErrTxFinished)
	_, err = tx.Get(ctx, []byte("a"))
	assert.ErrorIs(t, err, velograph.ErrTxFinished)
	assert.ErrorIs(t, tx.Set(ctx, []byte("a"), nil), velograph.ErrTxFinished)
}

func TestScan(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		for _, k := range []string{"a1", "a2", "a3", "b1", "\xff\xff"} {
			if err := tx.Set(ctx, []byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		beg, end := key.PrefixRange([]byte("a"))
		kvs, err := tx.Scan(ctx, beg, end, 0)
		require.NoError(t, err)
		require.Len(t, kvs, 3)
		assert.Equal(t, []byte("a1"), kvs[0].Key)
		assert.Equal(t, []byte("a3"), kvs[2].Value)

		kvs, err = tx.Scan(ctx, beg, end, 2)
		require.NoError(t, err)
		assert.Len(t, kvs, 2)

		kvs, err = tx.Scan(ctx, []byte("b"), nil, 0)
		require.NoError(t, err)
		require.Len(t, kvs, 2)
		assert.Equal(t, []byte("\xff\xff"), kvs[1].Key)

		kvs, err = tx.Scan(ctx, nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, kvs, 5)
		return nil
	}))
}

func TestLocked(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		l := tx.Lock()
		require.NoError(t, l.Set(ctx, []byte("x"), []byte("1")))
		ok, err := l.Exists(ctx, []byte("x"))
		require.NoError(t, err)
		assert.True(t, ok)
		v, err := l.Get(ctx, []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), v)
		l.Unlock()

		// The transaction is usable again once the section is released.
		ok, err = tx.Exists(ctx, []byte("x"))
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	}))
}

func TestGraphCount(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()
	id := record.Int(7)

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		n, err := tx.GraphCount(ctx, "n", "d", "likes", id)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, tx.ModifyGraphCount(ctx, "n", "d", "likes", id, 1))
		require.NoError(t, tx.ModifyGraphCount(ctx, "n", "d", "likes", id, 1))
		require.NoError(t, tx.ModifyGraphCount(ctx, "n", "d", "likes", id, -3))
		return nil
	}))
	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		n, err := tx.GraphCount(ctx, "n", "d", "likes", id)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), n)

		n, err = tx.GraphCount(ctx, "n", "other", "likes", id)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
}

func TestGraphCountConcurrent(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()
	id := record.Int(7)

	const n = 100
	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				return tx.ModifyGraphCount(ctx, "n", "d", "follows", id, 1)
			})
		}
		return g.Wait()
	}))
	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		count, err := tx.GraphCount(ctx, "n", "d", "follows", id)
		require.NoError(t, err)
		assert.Equal(t, int64(n), count)
		return nil
	}))
}

func TestTables(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		_, err := tx.Table(ctx, "n", "d", "person")
		require.True(t, velograph.IsTableNotFound(err))

		require.NoError(t, tx.DefineTable(ctx, "n", "d", &catalog.Table{Name: "person", Kind: catalog.Normal{}}))
		require.NoError(t, tx.DefineTable(ctx, "n", "d", &catalog.Table{Name: "likes", Kind: catalog.Relation{Enforced: true}}))
		require.NoError(t, tx.DefineTable(ctx, "n", "e", &catalog.Table{Name: "other", Kind: catalog.Any{}}))
		return nil
	}))
	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		tb, err := tx.Table(ctx, "n", "d", "likes")
		require.NoError(t, err)
		assert.True(t, tb.Enforced())

		tables, err := tx.Tables(ctx, "n", "d")
		require.NoError(t, err)
		require.Len(t, tables, 2)
		assert.Equal(t, "likes", tables[0].Name)
		assert.Equal(t, "person", tables[1].Name)
		return nil
	}))
}

func TestEdges(t *testing.T) {
	ds := openTest(t)
	ctx := context.Background()
	person := record.New("person", record.Int(1))

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		for _, k := range [][]byte{
			key.Edge("n", "d", "person", person.Key, record.Out, record.New("likes", record.Int(7))),
			key.Edge("n", "d", "person", person.Key, record.Out, record.New("likes", record.Int(8))),
			key.Edge("n", "d", "person", person.Key, record.In, record.New("knows", record.Str("x"))),
			key.Edge("n", "d", "person", record.Int(2), record.Out, record.New("likes", record.Int(9))),
		} {
			if err := tx.Set(ctx, k, nil); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, ds.View(ctx, func(ctx context.Context, tx *Transaction) error {
		out, err := tx.Edges(ctx, "n", "d", person, record.Out)
		require.NoError(t, err)
		assert.Equal(t, []record.ID{
			record.New("likes", record.Int(7)),
			record.New("likes", record.Int(8)),
		}, out)

		in, err := tx.Edges(ctx, "n", "d", person, record.In)
		require.NoError(t, err)
		assert.Equal(t, []record.ID{record.New("knows", record.Str("x"))}, in)

		n, err := tx.CountEdges(ctx, "n", "d", person)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		return nil
	}))
}

func TestRetries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS velograph_kv").WillReturnResult(sqlmock.NewResult(0, 0))
	ds, err := New(context.Background(), sql.OpenDB(dialect.SQLite, db), WithRetries(1))
	require.NoError(t, err)

	busy := codeErr{code: 5}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO velograph_kv").WillReturnError(busy)
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO velograph_kv").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var calls int
	err = ds.Update(context.Background(), func(ctx context.Context, tx *Transaction) error {
		calls++
		return tx.Set(ctx, []byte("k"), []byte("v"))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	ds, err := New(context.Background(), sql.OpenDB(dialect.SQLite, db))
	require.NoError(t, err)

	t.Run("begin", func(t *testing.T) {
		mock.ExpectBegin().WillReturnError(errors.New("no connection"))
		_, err := ds.Transaction(context.Background(), true)
		require.True(t, velograph.IsStorageError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		failed := errors.New("disk full")
		mock.ExpectBegin()
		mock.ExpectExec("INSERT").WillReturnError(failed)
		mock.ExpectRollback().WillReturnError(errors.New("connection lost"))
		err := ds.Update(context.Background(), func(ctx context.Context, tx *Transaction) error {
			return tx.Set(ctx, []byte("k"), nil)
		})
		var rerr *velograph.RollbackError
		require.ErrorAs(t, err, &rerr)
		assert.ErrorIs(t, err, failed)
		assert.True(t, velograph.IsStorageError(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT 1 FROM velograph_kv").WillReturnError(errors.New("io error"))
		mock.ExpectRollback()
		err := ds.View(context.Background(), func(ctx context.Context, tx *Transaction) error {
			_, err := tx.Exists(ctx, []byte("k"))
			return err
		})
		require.True(t, velograph.IsStorageError(err))
		assert.ErrorContains(t, err, "storage exists")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStats(t *testing.T) {
	var slow []sqlgraph.Op
	ds := openTest(t, WithStats(
		sql.WithSlowThreshold(-1),
		sql.WithSlowStatementHook(func(_ context.Context, op sqlgraph.Op, _ string, _ time.Duration) {
			slow = append(slow, op)
		}),
	))
	ctx := context.Background()

	require.NoError(t, ds.Update(ctx, func(ctx context.Context, tx *Transaction) error {
		require.NoError(t, tx.Set(ctx, []byte("a"), []byte("1")))
		require.NoError(t, tx.Set(ctx, []byte("b"), []byte("2")))
		_, err := tx.Get(ctx, []byte("a"))
		require.NoError(t, err)
		_, err = tx.Exists(ctx, []byte("c"))
		require.NoError(t, err)
		_, err = tx.Scan(ctx, nil, nil, 0)
		require.NoError(t, err)
		return tx.Del(ctx, []byte("b"))
	}))
	require.NotNil(t, ds.Stats())
	snap := ds.Stats().Stats()
	assert.Equal(t, int64(1), snap.Op(sqlgraph.OpOther).Count, "table bootstrap")
	assert.Equal(t, int64(2), snap.Op(sqlgraph.OpSet).Count)
	assert.Equal(t, int64(1), snap.Op(sqlgraph.OpGet).Count)
	assert.Equal(t, int64(1), snap.Op(sqlgraph.OpExists).Count)
	assert.Equal(t, int64(1), snap.Op(sqlgraph.OpScan).Count)
	assert.Equal(t, int64(1), snap.Op(sqlgraph.OpDel).Count)
	assert.Equal(t, int64(7), snap.Total().Count)
	assert.Zero(t, snap.Total().Errors)
	assert.Equal(t, int64(7), snap.SlowStatements)
	assert.Len(t, slow, 7)
	assert.Contains(t, snap.String(), "other=1 exists=1 get=1 set=2 del=1 scan=1 slow=7 errors=0")

	assert.Nil(t, openTest(t).Stats())
}

func TestInvalidTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(context.Background(), sql.OpenDB(dialect.SQLite, db), WithTable("kv; DROP TABLE x"))
	assert.Error(t, err)
}

type codeErr struct{ code int }

func (e codeErr) Error() string { return "sqlite error" }
func (e codeErr) Code() int     { return e.code }
