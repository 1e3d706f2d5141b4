// Package key builds the byte keys under which records, adjacency entries,
// graph counts and table definitions are stored.
//
// Keys are byte-comparable and injective. Every key starts with the same
// namespace/database/table prefix:
//
//	/*{ns}*{db}*{tb}
//
// followed by a one byte marker and the marker's payload:
//
//	Thing:      /*{ns}*{db}*{tb}*{id}
//	Edge:       /*{ns}*{db}*{tb}~{id}{dir}{peer-tb}{peer-id}
//	GraphCount: /*{ns}*{db}*{tb}#{id}
//	Table:      /*{ns}*{db}!tb{tb}
//
// Strings are escaped (0x00 becomes 0x00 0xFF) and terminated by 0x00 0x01,
// which keeps them self-delimiting and preserves their order. Record keys are
// tagged by type, so all adjacency entries of one record sort together and the
// direction byte splits them into an In range and an Out range.
package key

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/syssam/velograph/record"
)

// Markers following the table prefix.
const (
	markThing = '*'
	markEdge  = '~'
	markCount = '#'
)

// Record key type tags.
const (
	tagInt  = 0x01
	tagStr  = 0x02
	tagUUID = 0x03
)

// Direction bytes. In sorts before Out.
const (
	dirIn  = 0x00
	dirOut = 0x01
)

// ErrInvalidKey is returned when decoding a malformed key.
var ErrInvalidKey = errors.New("key: invalid key")

// Thing returns the existence key of a record.
func Thing(ns, db, tb string, id record.Key) []byte {
	b := table(ns, db, tb, 16)
	b = append(b, markThing)
	return appendKey(b, id)
}

// Edge returns the adjacency key of (tb, id) pointing at peer in direction dir.
func Edge(ns, db, tb string, id record.Key, dir record.Dir, peer record.ID) []byte {
	b := EdgeDirPrefix(ns, db, tb, id, dir)
	b = appendString(b, peer.Table)
	return appendKey(b, peer.Key)
}

// EdgePrefix returns the prefix shared by all adjacency entries of (tb, id).
func EdgePrefix(ns, db, tb string, id record.Key) []byte {
	b := table(ns, db, tb, 48)
	b = append(b, markEdge)
	return appendKey(b, id)
}

// EdgeDirPrefix returns the prefix of the adjacency entries of (tb, id)
// in one direction.
func EdgeDirPrefix(ns, db, tb string, id record.Key, dir record.Dir) []byte {
	return append(EdgePrefix(ns, db, tb, id), dirByte(dir))
}

// GraphCount returns the key of the edge counter of (tb, id).
func GraphCount(ns, db, tb string, id record.Key) []byte {
	b := table(ns, db, tb, 16)
	b = append(b, markCount)
	return appendKey(b, id)
}

// Table returns the key of a table definition.
func Table(ns, db, tb string) []byte {
	b := database(ns, db, len(tb)+8)
	b = append(b, '!', 't', 'b')
	return appendString(b, tb)
}

// TablePrefix returns the prefix of all table definitions of a database.
func TablePrefix(ns, db string) []byte {
	b := database(ns, db, 4)
	return append(b, '!', 't', 'b')
}

// PrefixRange returns the half open range [beg, end) that holds every key
// starting with prefix.
func PrefixRange(prefix []byte) (beg, end []byte) {
	beg = bytes.Clone(prefix)
	end = bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return beg, end[:i+1]
		}
	}
	// All 0xFF: no upper bound.
	return beg, nil
}

// EdgeKey is a decoded adjacency key.
type EdgeKey struct {
	NS, DB string
	Table  string
	Key    record.Key
	Dir    record.Dir
	Peer   record.ID
}

// DecodeEdge decodes a key produced by Edge.
func DecodeEdge(k []byte) (*EdgeKey, error) {
	d := decoder{b: k}
	d.expect('/')
	d.expect('*')
	e := &EdgeKey{NS: d.string()}
	d.expect('*')
	e.DB = d.string()
	d.expect('*')
	e.Table = d.string()
	d.expect(markEdge)
	e.Key = d.key()
	switch d.byte() {
	case dirIn:
		e.Dir = record.In
	case dirOut:
		e.Dir = record.Out
	default:
		d.fail("direction")
	}
	e.Peer.Table = d.string()
	e.Peer.Key = d.key()
	if d.err == nil && len(d.b) != 0 {
		d.fail("trailing bytes")
	}
	if d.err != nil {
		return nil, d.err
	}
	return e, nil
}

func database(ns, db string, extra int) []byte {
	b := make([]byte, 0, 2+len(ns)+len(db)+extra+8)
	b = append(b, '/', '*')
	b = appendString(b, ns)
	b = append(b, '*')
	return appendString(b, db)
}

func table(ns, db, tb string, extra int) []byte {
	b := database(ns, db, len(tb)+extra)
	b = append(b, '*')
	return appendString(b, tb)
}

func dirByte(d record.Dir) byte {
	if d == record.Out {
		return dirOut
	}
	return dirIn
}

func appendString(b []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if s[i] == 0x00 {
			b = append(b, 0x00, 0xFF)
			continue
		}
		b = append(b, s[i])
	}
	return append(b, 0x00, 0x01)
}

func appendKey(b []byte, k record.Key) []byte {
	switch k := k.(type) {
	case record.Int:
		b = append(b, tagInt)
		// Flip the sign bit so negative numbers sort first.
		return binary.BigEndian.AppendUint64(b, uint64(k)^(1<<63))
	case record.Str:
		b = append(b, tagStr)
		return appendString(b, string(k))
	case record.UUID:
		b = append(b, tagUUID)
		return append(b, k[:]...)
	default:
		panic(fmt.Sprintf("key: unsupported record key %T", k))
	}
}

type decoder struct {
	b   []byte
	err error
}

func (d *decoder) fail(what string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: bad %s", ErrInvalidKey, what)
	}
	d.b = nil
}

func (d *decoder) byte() byte {
	if d.err != nil || len(d.b) == 0 {
		d.fail("length")
		return 0
	}
	c := d.b[0]
	d.b = d.b[1:]
	return c
}

func (d *decoder) expect(c byte) {
	if d.byte() != c {
		d.fail(fmt.Sprintf("marker %q", c))
	}
}

func (d *decoder) string() string {
	var s []byte
	for d.err == nil {
		c := d.byte()
		if c != 0x00 {
			s = append(s, c)
			continue
		}
		switch d.byte() {
		case 0x01:
			return string(s)
		case 0xFF:
			s = append(s, 0x00)
		default:
			d.fail("string escape")
		}
	}
	return ""
}

func (d *decoder) key() record.Key {
	switch d.byte() {
	case tagInt:
		if len(d.b) < 8 {
			d.fail("int key")
			return nil
		}
		n := binary.BigEndian.Uint64(d.b) ^ (1 << 63)
		d.b = d.b[8:]
		return record.Int(int64(n))
	case tagStr:
		return record.Str(d.string())
	case tagUUID:
		if len(d.b) < 16 {
			d.fail("uuid key")
			return nil
		}
		var u uuid.UUID
		copy(u[:], d.b)
		d.b = d.b[16:]
		return record.UUID(u)
	default:
		d.fail("key tag")
		return nil
	}
}
