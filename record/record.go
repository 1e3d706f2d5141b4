// Package record defines record identities and edge directions.
//
// A record identity is a table name and a key. Identities are plain values:
// two identities are equal exactly when their table and key are equal, so
// they can be compared with == and used as map keys.
//
//	left := record.ID{Table: "person", Key: record.Int(1)}
//	rel, _ := record.Parse("likes:7")
//	fmt.Println(left, rel) // person:1 likes:7
package record

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key is the key part of a record identity. The concrete types are
// Int, Str and UUID.
type Key interface {
	fmt.Stringer
	key()
}

type (
	// Int is a numeric record key.
	Int int64
	// Str is a textual record key.
	Str string
	// UUID is a uuid record key.
	UUID uuid.UUID
)

func (Int) key()  {}
func (Str) key()  {}
func (UUID) key() {}

// String returns the key in its textual form.
func (k Int) String() string { return strconv.FormatInt(int64(k), 10) }

// String returns the key, bracketed with ⟨⟩ when it is not a plain identifier.
func (k Str) String() string {
	if plain(string(k)) {
		return string(k)
	}
	return "⟨" + strings.ReplaceAll(string(k), "⟩", `\⟩`) + "⟩"
}

// String returns the key as u'…'.
func (k UUID) String() string { return "u'" + uuid.UUID(k).String() + "'" }

// ID identifies a stored record.
type ID struct {
	Table string
	Key   Key
}

// New returns the identity of a record in the given table.
func New(table string, key Key) ID {
	return ID{Table: table, Key: key}
}

// NewUUID returns an identity with a freshly generated uuid key.
func NewUUID(table string) ID {
	return ID{Table: table, Key: UUID(uuid.New())}
}

// String returns the identity as table:key.
func (id ID) String() string {
	if id.Key == nil {
		return escapeTable(id.Table) + ":"
	}
	return escapeTable(id.Table) + ":" + id.Key.String()
}

// IsZero reports whether the identity is unset.
func (id ID) IsZero() bool {
	return id.Table == "" && id.Key == nil
}

// Parse parses the textual form produced by ID.String.
func Parse(s string) (ID, error) {
	tb, k, ok := splitID(s)
	if !ok || tb == "" || k == "" {
		return ID{}, fmt.Errorf("record: invalid record id %q", s)
	}
	tb = unescapeTable(tb)
	switch {
	case strings.HasPrefix(k, "⟨") && strings.HasSuffix(k, "⟩"):
		inner := strings.TrimSuffix(strings.TrimPrefix(k, "⟨"), "⟩")
		return ID{Table: tb, Key: Str(strings.ReplaceAll(inner, `\⟩`, "⟩"))}, nil
	case len(k) > 3 && (k[:2] == "u'" && k[len(k)-1] == '\'' || k[:2] == `u"` && k[len(k)-1] == '"'):
		u, err := uuid.Parse(k[2 : len(k)-1])
		if err != nil {
			return ID{}, fmt.Errorf("record: invalid uuid key in %q: %w", s, err)
		}
		return ID{Table: tb, Key: UUID(u)}, nil
	}
	if n, err := strconv.ParseInt(k, 10, 64); err == nil {
		return ID{Table: tb, Key: Int(n)}, nil
	}
	return ID{Table: tb, Key: Str(k)}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Dir is the direction of an adjacency entry relative to the record it
// is stored under.
type Dir uint8

const (
	// In marks an edge entering the record.
	In Dir = iota
	// Out marks an edge leaving the record.
	Out
)

// String returns "<-" or "->".
func (d Dir) String() string {
	switch d {
	case In:
		return "<-"
	case Out:
		return "->"
	default:
		return "Dir(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDir accepts in, out, <- and ->.
func ParseDir(s string) (Dir, error) {
	switch strings.ToLower(s) {
	case "in", "<-":
		return In, nil
	case "out", "->":
		return Out, nil
	}
	return 0, fmt.Errorf("record: invalid direction %q", s)
}

// splitID splits at the first colon that is not inside a ⟨⟩ table name.
func splitID(s string) (string, string, bool) {
	if strings.HasPrefix(s, "⟨") {
		end := strings.Index(s, "⟩:")
		if end < 0 {
			return "", "", false
		}
		return s[:end+len("⟩")], s[end+len("⟩:"):], true
	}
	return strings.Cut(s, ":")
}

func escapeTable(tb string) string {
	if plain(tb) {
		return tb
	}
	return "⟨" + tb + "⟩"
}

func unescapeTable(tb string) string {
	if strings.HasPrefix(tb, "⟨") && strings.HasSuffix(tb, "⟩") {
		return strings.TrimSuffix(strings.TrimPrefix(tb, "⟨"), "⟩")
	}
	return tb
}

// plain reports whether s is a non-numeric identifier made of letters,
// digits and underscores.
func plain(s string) bool {
	if s == "" {
		return false
	}
	digits := true
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
			digits = false
		default:
			return false
		}
	}
	return !digits
}
