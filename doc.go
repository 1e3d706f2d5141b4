// Package velograph is a graph-edge persistence engine on top of a
// transactional key-value store.
//
// A relate statement connects two records through a third, relation record.
// The edge is stored as four adjacency entries, two on each side of the
// relation record, so that either endpoint can scan its edges in one range:
//
//	ds, err := kvs.Open(ctx, dialect.SQLite, "file:graph.db")
//	if err != nil {
//		return err
//	}
//	opt := dbs.NewOptions().WithNS("n").WithDB("d")
//	d, err := doc.RelateRecords(ctx, ds, opt,
//		record.MustParse("person:1"),
//		record.MustParse("likes:7"),
//		record.MustParse("person:2"),
//		nil,
//	)
//
// The packages are layered as follows:
//
//   - record: record identities and edge directions.
//   - key: byte-comparable storage keys.
//   - kvs: the transactional key-value store and graph counts.
//   - catalog: table definitions and schema files.
//   - doc: the per-document write pipeline that stores edges.
//
// This package holds the errors shared by all of them.
package velograph
