// Package dbs holds the per-operation options a statement runs with.
package dbs

import "github.com/syssam/velograph"

// Options selects the namespace and database an operation runs in.
// Options are immutable; the With methods return modified copies.
type Options struct {
	ns     string
	db     string
	strict bool
}

// NewOptions returns empty options.
func NewOptions() *Options {
	return &Options{}
}

// WithNS returns a copy of the options selecting namespace ns.
func (o *Options) WithNS(ns string) *Options {
	c := *o
	c.ns = ns
	return &c
}

// WithDB returns a copy of the options selecting database db.
func (o *Options) WithDB(db string) *Options {
	c := *o
	c.db = db
	return &c
}

// WithStrict returns a copy of the options with strict mode set. In strict
// mode undefined tables are an error instead of being defined on first use.
func (o *Options) WithStrict(strict bool) *Options {
	c := *o
	c.strict = strict
	return &c
}

// NS returns the selected namespace.
func (o *Options) NS() (string, error) {
	if o == nil || o.ns == "" {
		return "", velograph.NewMissingContextError("namespace")
	}
	return o.ns, nil
}

// DB returns the selected database.
func (o *Options) DB() (string, error) {
	if o == nil || o.db == "" {
		return "", velograph.NewMissingContextError("database")
	}
	return o.db, nil
}

// NSDB returns the namespace and the database.
func (o *Options) NSDB() (string, string, error) {
	ns, err := o.NS()
	if err != nil {
		return "", "", err
	}
	db, err := o.DB()
	if err != nil {
		return "", "", err
	}
	return ns, db, nil
}

// Strict reports whether strict mode is enabled.
func (o *Options) Strict() bool {
	return o != nil && o.strict
}
