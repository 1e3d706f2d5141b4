package doc

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/catalog"
	"github.com/syssam/velograph/dbs"
	"github.com/syssam/velograph/key"
	"github.com/syssam/velograph/kvs"
	"github.com/syssam/velograph/record"
	"github.com/syssam/velograph/value"
)

// StoreEdgesData stores the adjacency entries and the graph count of a
// relate document and sets the computed edge fields on it. It does nothing
// for other documents and for tables marked as views.
//
// Errors are returned as is and leave the document untouched. Writes done
// before the error are discarded when the caller cancels the transaction.
//
// Every call counts one more edge. Callers must run it at most once per
// relate and transaction.
func (d *Document) StoreEdgesData(ctx context.Context, tx *kvs.Transaction, opt *dbs.Options) error {
	tb, err := d.table(ctx, tx, opt)
	if err != nil {
		return err
	}
	if tb.Drop {
		return nil
	}
	rid, err := d.id()
	if err != nil {
		return err
	}
	rel, ok := d.Extras.(Relate)
	if !ok {
		return nil
	}
	if !complete(rel.Left) || !complete(rel.Right) {
		return velograph.ErrMissingRecordID
	}
	ns, db, err := opt.NSDB()
	if err != nil {
		return err
	}
	l, r := rel.Left, rel.Right
	switch k := tb.Kind.(type) {
	case catalog.Relation:
		if err := checkTables(k, l, r); err != nil {
			return err
		}
		if k.Enforced {
			if err := enforce(ctx, tx, ns, db, l, r); err != nil {
				return err
			}
		}
	case catalog.Normal, catalog.Any:
	default:
		panic(fmt.Sprintf("doc: unexpected table kind %T", k))
	}
	if err := writeEdges(ctx, tx, ns, db, l, rid, r); err != nil {
		return err
	}
	if err := tx.ModifyGraphCount(ctx, ns, db, rid.Table, rid.Key, 1); err != nil {
		return err
	}
	tx.Logger().DebugContext(ctx, "edge stored", "in", l.String(), "id", rid.String(), "out", r.String())
	d.Current.Put(value.FieldEdge, true)
	d.Current.Put(value.FieldIn, l)
	d.Current.Put(value.FieldOut, r)
	return nil
}

// complete reports whether id names a single record.
func complete(id record.ID) bool {
	return id.Table != "" && id.Key != nil
}

// enforce checks that both endpoints exist, the left one first.
func enforce(ctx context.Context, tx *kvs.Transaction, ns, db string, l, r record.ID) error {
	for _, id := range []record.ID{l, r} {
		ok, err := tx.Exists(ctx, key.Thing(ns, db, id.Table, id.Key))
		if err != nil {
			return err
		}
		if !ok {
			return velograph.NewEndpointNotFoundError(id)
		}
	}
	return nil
}

// checkTables checks the endpoints against the tables the relation accepts.
// An empty list accepts any table.
func checkTables(k catalog.Relation, l, r record.ID) error {
	if len(k.In) > 0 && !slices.Contains(k.In, l.Table) {
		return &velograph.EndpointTableError{ID: l.String(), Allowed: k.In}
	}
	if len(k.Out) > 0 && !slices.Contains(k.Out, r.Table) {
		return &velograph.EndpointTableError{ID: r.String(), Allowed: k.Out}
	}
	return nil
}

// writeEdges writes the four adjacency entries of an edge in one exclusive
// section of the transaction.
func writeEdges(ctx context.Context, tx *kvs.Transaction, ns, db string, l, rid, r record.ID) error {
	txr := tx.Lock()
	defer txr.Unlock()
	for _, k := range [][]byte{
		key.Edge(ns, db, l.Table, l.Key, record.Out, rid),
		key.Edge(ns, db, rid.Table, rid.Key, record.In, l),
		key.Edge(ns, db, rid.Table, rid.Key, record.Out, r),
		key.Edge(ns, db, r.Table, r.Key, record.In, rid),
	} {
		if err := txr.Set(ctx, k, nil); err != nil {
			return err
		}
	}
	return nil
}
