package doc

import (
	"context"

	"github.com/syssam/velograph/dbs"
	"github.com/syssam/velograph/key"
	"github.com/syssam/velograph/kvs"
	"github.com/syssam/velograph/record"
	"github.com/syssam/velograph/value"
)

// StoreRecordData stores the document's fields under its record key.
// Tables marked as views are skipped.
func (d *Document) StoreRecordData(ctx context.Context, tx *kvs.Transaction, opt *dbs.Options) error {
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
	ns, db, err := opt.NSDB()
	if err != nil {
		return err
	}
	body := d.Current.Clone()
	body.Put(value.FieldID, rid)
	if rel, ok := d.Extras.(Relate); ok {
		for f, v := range rel.Data {
			if _, set := body[f]; !set {
				body.Put(f, v)
			}
		}
	}
	v, err := body.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.Set(ctx, key.Thing(ns, db, rid.Table, rid.Key), v)
}

// Load returns the stored fields of a record, or nil if it does not exist.
func Load(ctx context.Context, tx *kvs.Transaction, opt *dbs.Options, rid record.ID) (value.Object, error) {
	ns, db, err := opt.NSDB()
	if err != nil {
		return nil, err
	}
	b, err := tx.Get(ctx, key.Thing(ns, db, rid.Table, rid.Key))
	if err != nil || b == nil {
		return nil, err
	}
	return value.Unmarshal(b)
}
