// Package doc processes one document of a write statement: it resolves the
// document's table, stores the record body and, for relate statements, the
// edge between the two endpoints.
//
// A relate stores four adjacency entries under the same transaction:
//
//	left     -> relation   (left, Out, relation)
//	relation <- left       (relation, In, left)
//	relation -> right      (relation, Out, right)
//	right    <- relation   (right, In, relation)
//
// and increments the graph count of the relation record by one.
package doc

import (
	"context"
	"errors"

	"github.com/syssam/velograph"
	"github.com/syssam/velograph/catalog"
	"github.com/syssam/velograph/dbs"
	"github.com/syssam/velograph/kvs"
	"github.com/syssam/velograph/record"
	"github.com/syssam/velograph/value"
)

// Workable is the statement specific payload of a Document.
// The concrete payloads are Normal and Relate.
type Workable interface {
	workable()
}

// Normal is the payload of documents that are not edges.
type Normal struct{}

// Relate is the payload of a relate statement.
type Relate struct {
	Left  record.ID
	Right record.ID
	Data  value.Object
}

func (Normal) workable() {}
func (Relate) workable() {}

// Document is a record being written.
type Document struct {
	ID      *record.ID
	Current value.Object
	Extras  Workable
}

// New returns a document for id with the given fields.
func New(id *record.ID, current value.Object, extras Workable) *Document {
	if current == nil {
		current = value.Object{}
	}
	if extras == nil {
		extras = Normal{}
	}
	return &Document{ID: id, Current: current, Extras: extras}
}

// id returns the record id of the document.
func (d *Document) id() (record.ID, error) {
	if d.ID == nil || d.ID.Table == "" || d.ID.Key == nil {
		return record.ID{}, velograph.ErrMissingRecordID
	}
	return *d.ID, nil
}

// table resolves the definition of the document's table. Unknown tables are
// an error in strict mode and are defined on first use otherwise.
func (d *Document) table(ctx context.Context, tx *kvs.Transaction, opt *dbs.Options) (*catalog.Table, error) {
	ns, db, err := opt.NSDB()
	if err != nil {
		return nil, err
	}
	id, err := d.id()
	if err != nil {
		return nil, err
	}
	tb, err := tx.Table(ctx, ns, db, id.Table)
	switch {
	case err == nil:
		return tb, nil
	case !errors.Is(err, velograph.ErrTableNotFound) || opt.Strict():
		return nil, err
	}
	tb = &catalog.Table{Name: id.Table, Kind: catalog.Normal{}}
	if _, ok := d.Extras.(Relate); ok {
		tb.Kind = catalog.Relation{}
	}
	if err := tx.DefineTable(ctx, ns, db, tb); err != nil {
		return nil, err
	}
	return tb, nil
}
