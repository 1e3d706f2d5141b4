// Package catalog describes table definitions: whether a table stores rows
// at all, and whether it is a relation table whose endpoints must exist.
package catalog

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Kind is the kind of a table. The concrete kinds are Any, Normal and Relation.
type Kind interface {
	kind() string
}

// Any tables accept both plain records and edges.
type Any struct{}

// Normal tables store plain records.
type Normal struct{}

// Relation tables store edges.
type Relation struct {
	// Enforced requires both endpoints to exist before an edge is stored.
	Enforced bool
	// In and Out optionally restrict the endpoint tables.
	In, Out []string
}

func (Any) kind() string      { return "any" }
func (Normal) kind() string   { return "normal" }
func (Relation) kind() string { return "relation" }

// Table is a table definition.
type Table struct {
	Name string
	// Drop marks a view-like table that never materializes records.
	Drop bool
	Kind Kind
}

// IsRelation reports whether the table is a relation table.
func (t *Table) IsRelation() bool {
	_, ok := t.Kind.(Relation)
	return ok
}

// Enforced reports whether the table is a relation table with enforced endpoints.
func (t *Table) Enforced() bool {
	switch k := t.Kind.(type) {
	case Relation:
		return k.Enforced
	case Any, Normal, nil:
		return false
	default:
		panic(fmt.Sprintf("catalog: unexpected table kind %T", k))
	}
}

// tableDoc is the storage and file representation of Table.
type tableDoc struct {
	Name     string   `msgpack:"name" yaml:"name"`
	Drop     bool     `msgpack:"drop,omitempty" yaml:"drop,omitempty"`
	Kind     string   `msgpack:"kind" yaml:"kind,omitempty"`
	Enforced bool     `msgpack:"enforced,omitempty" yaml:"enforced,omitempty"`
	In       []string `msgpack:"in,omitempty" yaml:"in,omitempty"`
	Out      []string `msgpack:"out,omitempty" yaml:"out,omitempty"`
}

func (t *Table) doc() tableDoc {
	d := tableDoc{Name: t.Name, Drop: t.Drop, Kind: "any"}
	if t.Kind != nil {
		d.Kind = t.Kind.kind()
	}
	if r, ok := t.Kind.(Relation); ok {
		d.Enforced, d.In, d.Out = r.Enforced, r.In, r.Out
	}
	return d
}

func (d tableDoc) table() (*Table, error) {
	if d.Name == "" {
		return nil, fmt.Errorf("catalog: table without name")
	}
	t := &Table{Name: d.Name, Drop: d.Drop}
	switch d.Kind {
	case "", "any":
		t.Kind = Any{}
	case "normal":
		t.Kind = Normal{}
	case "relation":
		t.Kind = Relation{Enforced: d.Enforced, In: d.In, Out: d.Out}
	default:
		return nil, fmt.Errorf("catalog: table %q has unknown kind %q", d.Name, d.Kind)
	}
	if d.Enforced && d.Kind != "relation" {
		return nil, fmt.Errorf("catalog: table %q: only relation tables can be enforced", d.Name)
	}
	return t, nil
}

// MarshalBinary encodes the definition for storage.
func (t *Table) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal(t.doc())
}

// UnmarshalBinary decodes a definition produced by MarshalBinary.
func (t *Table) UnmarshalBinary(b []byte) error {
	var d tableDoc
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return fmt.Errorf("catalog: decoding table: %w", err)
	}
	v, err := d.table()
	if err != nil {
		return err
	}
	*t = *v
	return nil
}
