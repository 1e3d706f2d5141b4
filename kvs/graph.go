package kvs

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/catalog"
	"github.com/syssam/velograph/key"
	"github.com/syssam/velograph/record"
)

// GraphCount returns the edge counter of a record, 0 when it was never set.
func (t *Transaction) GraphCount(ctx context.Context, ns, db, tb string, id record.Key) (int64, error) {
	b, err := t.Get(ctx, key.GraphCount(ns, db, tb, id))
	if err != nil || b == nil {
		return 0, err
	}
	return decodeCount(b)
}

// ModifyGraphCount adds delta to the edge counter of a record. The read and
// the write happen in one exclusive section of the transaction.
func (t *Transaction) ModifyGraphCount(ctx context.Context, ns, db, tb string, id record.Key, delta int64) error {
	k := key.GraphCount(ns, db, tb, id)
	l := t.Lock()
	defer l.Unlock()
	b, err := l.Get(ctx, k)
	if err != nil {
		return err
	}
	var n int64
	if b != nil {
		if n, err = decodeCount(b); err != nil {
			return err
		}
	}
	v, err := msgpack.Marshal(n + delta)
	if err != nil {
		return fmt.Errorf("kvs: encoding graph count: %w", err)
	}
	if err := l.Set(ctx, k, v); err != nil {
		return err
	}
	t.log.DebugContext(ctx, "graph count modified", "table", tb, "id", id.String(), "count", n+delta)
	return nil
}

func decodeCount(b []byte) (int64, error) {
	var n int64
	if err := msgpack.Unmarshal(b, &n); err != nil {
		return 0, velograph.NewStorageError("decode graph count", err)
	}
	return n, nil
}

// DefineTable stores a table definition, replacing any previous one.
func (t *Transaction) DefineTable(ctx context.Context, ns, db string, tb *catalog.Table) error {
	v, err := tb.MarshalBinary()
	if err != nil {
		return err
	}
	t.log.DebugContext(ctx, "table defined", "ns", ns, "db", db, "table", tb.Name)
	return t.Set(ctx, key.Table(ns, db, tb.Name), v)
}

// Table returns a table definition or a TableNotFoundError.
func (t *Transaction) Table(ctx context.Context, ns, db, tb string) (*catalog.Table, error) {
	b, err := t.Get(ctx, key.Table(ns, db, tb))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, velograph.NewTableNotFoundError(tb)
	}
	def := &catalog.Table{}
	if err := def.UnmarshalBinary(b); err != nil {
		return nil, velograph.NewStorageError("decode table", err)
	}
	return def, nil
}

// Tables returns the table definitions of a database ordered by key.
func (t *Transaction) Tables(ctx context.Context, ns, db string) ([]*catalog.Table, error) {
	beg, end := key.PrefixRange(key.TablePrefix(ns, db))
	kvs, err := t.Scan(ctx, beg, end, 0)
	if err != nil {
		return nil, err
	}
	tables := make([]*catalog.Table, 0, len(kvs))
	for _, kv := range kvs {
		def := &catalog.Table{}
		if err := def.UnmarshalBinary(kv.Value); err != nil {
			return nil, velograph.NewStorageError("decode table", err)
		}
		tables = append(tables, def)
	}
	return tables, nil
}

// Edges returns the peers of id in direction dir, ordered by key.
func (t *Transaction) Edges(ctx context.Context, ns, db string, id record.ID, dir record.Dir) ([]record.ID, error) {
	beg, end := key.PrefixRange(key.EdgeDirPrefix(ns, db, id.Table, id.Key, dir))
	kvs, err := t.Scan(ctx, beg, end, 0)
	if err != nil {
		return nil, err
	}
	peers := make([]record.ID, 0, len(kvs))
	for _, kv := range kvs {
		ek, err := key.DecodeEdge(kv.Key)
		if err != nil {
			return nil, velograph.NewStorageError("decode edge", err)
		}
		peers = append(peers, ek.Peer)
	}
	return peers, nil
}

// CountEdges returns the number of adjacency entries of id in both directions.
func (t *Transaction) CountEdges(ctx context.Context, ns, db string, id record.ID) (int, error) {
	beg, end := key.PrefixRange(key.EdgePrefix(ns, db, id.Table, id.Key))
	kvs, err := t.Scan(ctx, beg, end, 0)
	if err != nil {
		return 0, err
	}
	return len(kvs), nil
}
