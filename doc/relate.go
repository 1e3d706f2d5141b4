package doc

import (
	"context"

	"github.com/syssam/velograph/dbs"
	"github.com/syssam/velograph/kvs"
	"github.com/syssam/velograph/record"
	"github.com/syssam/velograph/value"
)

// Process runs the document through the write pipeline: the edge first,
// then the record body.
func (d *Document) Process(ctx context.Context, tx *kvs.Transaction, opt *dbs.Options) error {
	if err := d.StoreEdgesData(ctx, tx, opt); err != nil {
		return err
	}
	return d.StoreRecordData(ctx, tx, opt)
}

// Create stores a plain record in its own transaction.
func Create(ctx context.Context, ds *kvs.Datastore, opt *dbs.Options, id record.ID, data value.Object) (*Document, error) {
	return run(ctx, ds, opt, func() *Document {
		return New(&id, data.Clone(), Normal{})
	})
}

// RelateRecords stores the edge left -> rel -> right in its own transaction and
// returns the relation document with its computed fields. A zero rel
// Key generates a uuid key in rel's table.
func RelateRecords(ctx context.Context, ds *kvs.Datastore, opt *dbs.Options, left, rel, right record.ID, data value.Object) (*Document, error) {
	if rel.Key == nil {
		rel = record.NewUUID(rel.Table)
	}
	return run(ctx, ds, opt, func() *Document {
		return New(&rel, data.Clone(), Relate{Left: left, Right: right, Data: data})
	})
}

// run processes a fresh document on every attempt of the transaction.
func run(ctx context.Context, ds *kvs.Datastore, opt *dbs.Options, newDoc func() *Document) (*Document, error) {
	var d *Document
	err := ds.Update(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
		d = newDoc()
		return d.Process(ctx, tx, opt)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}
