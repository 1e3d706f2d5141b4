// Package value holds the in-memory representation of a record's fields.
package value

import (
	"fmt"
	"maps"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/velograph/record"
)

// Fields computed on relation records once their edge is stored.
const (
	// FieldEdge is set to true on records that are edges.
	FieldEdge = "__"
	// FieldIn holds the record id the edge starts from.
	FieldIn = "in"
	// FieldOut holds the record id the edge points to.
	FieldOut = "out"
	// FieldID holds the record's own id.
	FieldID = "id"
)

// Object is a mutable set of named fields.
type Object map[string]any

// Put sets field to v.
func (o Object) Put(field string, v any) {
	o[field] = v
}

// Get returns the value of field, or nil.
func (o Object) Get(field string) any {
	return o[field]
}

// Clone returns a shallow copy of the object.
func (o Object) Clone() Object {
	if o == nil {
		return Object{}
	}
	return maps.Clone(o)
}

// MarshalBinary encodes the object with msgpack. Record ids are stored in
// their textual form.
func (o Object) MarshalBinary() ([]byte, error) {
	b, err := msgpack.Marshal(storable(map[string]any(o)))
	if err != nil {
		return nil, fmt.Errorf("value: encoding object: %w", err)
	}
	return b, nil
}

// Unmarshal decodes an object encoded with MarshalBinary.
func Unmarshal(b []byte) (Object, error) {
	var m map[string]any
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("value: decoding object: %w", err)
	}
	return Object(m), nil
}

func storable(v any) any {
	switch v := v.(type) {
	case record.ID:
		return v.String()
	case *record.ID:
		if v == nil {
			return nil
		}
		return v.String()
	case Object:
		return storable(map[string]any(v))
	case map[string]any:
		m := make(map[string]any, len(v))
		for k, e := range v {
			m[k] = storable(e)
		}
		return m
	case []any:
		s := make([]any, len(v))
		for i, e := range v {
			s[i] = storable(e)
		}
		return s
	default:
		return v
	}
}
