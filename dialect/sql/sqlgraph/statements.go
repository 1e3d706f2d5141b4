// Package sqlgraph maps the velograph key-value model onto SQL tables.
//
// All keys live in a single two column table ordered by key. Range scans
// rely on the column comparing bytes lexicographically, which holds for
// SQLite BLOB, Postgres bytea and MySQL VARBINARY.
package sqlgraph

import (
	"fmt"
	"strings"

	"github.com/syssam/velograph/dialect"
)

// DefaultTable is the name of the key-value table.
const DefaultTable = "velograph_kv"

// Statements holds the SQL statements of one dialect.
type Statements struct {
	Dialect string
	// Create holds the DDL statements creating the table. They are idempotent.
	Create []string
	// Get selects v for k.
	Get string
	// Exists selects a constant row when k exists.
	Exists string
	// Set upserts (k, v).
	Set string
	// Del removes k.
	Del string
	// Scan selects (k, v) in [beg, end) ordered by k, limited to n rows.
	Scan string
	// ScanFrom is Scan without an upper bound.
	ScanFrom string
}

// Op is the key-value operation a statement performs.
type Op uint8

// Key-value operations. OpOther covers the table DDL and foreign statements.
const (
	OpOther Op = iota
	OpExists
	OpGet
	OpSet
	OpDel
	OpScan
	NumOps
)

var opNames = [NumOps]string{"other", "exists", "get", "set", "del", "scan"}

func (o Op) String() string {
	if o < NumOps {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Op returns the operation query performs.
func (s *Statements) Op(query string) Op {
	switch query {
	case s.Exists:
		return OpExists
	case s.Get:
		return OpGet
	case s.Set:
		return OpSet
	case s.Del:
		return OpDel
	case s.Scan, s.ScanFrom:
		return OpScan
	}
	return OpOther
}

// For returns the statements for the given dialect and table name.
// An empty table name selects DefaultTable.
func For(name, table string) (*Statements, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validIdentifier(table) {
		return nil, fmt.Errorf("sqlgraph: invalid table name %q", table)
	}
	var s *Statements
	switch name {
	case dialect.SQLite:
		s = &Statements{
			Create: []string{
				"CREATE TABLE IF NOT EXISTS %[1]s (k BLOB NOT NULL PRIMARY KEY, v BLOB NOT NULL) WITHOUT ROWID",
			},
			Set: "INSERT INTO %[1]s (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v",
		}
	case dialect.Postgres:
		s = &Statements{
			Create: []string{
				"CREATE TABLE IF NOT EXISTS %[1]s (k bytea NOT NULL PRIMARY KEY, v bytea NOT NULL)",
			},
			Set: "INSERT INTO %[1]s (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v",
		}
	case dialect.MySQL:
		s = &Statements{
			Create: []string{
				"CREATE TABLE IF NOT EXISTS %[1]s (k VARBINARY(3072) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL)",
			},
			Set: "INSERT INTO %[1]s (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)",
		}
	default:
		return nil, fmt.Errorf("sqlgraph: unsupported dialect %q", name)
	}
	s.Dialect = name
	s.Get = "SELECT v FROM %[1]s WHERE k = ?"
	s.Exists = "SELECT 1 FROM %[1]s WHERE k = ?"
	s.Del = "DELETE FROM %[1]s WHERE k = ?"
	s.Scan = "SELECT k, v FROM %[1]s WHERE k >= ? AND k < ? ORDER BY k LIMIT ?"
	s.ScanFrom = "SELECT k, v FROM %[1]s WHERE k >= ? ORDER BY k LIMIT ?"
	for i := range s.Create {
		s.Create[i] = s.format(s.Create[i], table)
	}
	s.Get = s.format(s.Get, table)
	s.Exists = s.format(s.Exists, table)
	s.Set = s.format(s.Set, table)
	s.Del = s.format(s.Del, table)
	s.Scan = s.format(s.Scan, table)
	s.ScanFrom = s.format(s.ScanFrom, table)
	return s, nil
}

// format fills in the table name and rewrites placeholders to $n on Postgres.
func (s *Statements) format(query, table string) string {
	query = fmt.Sprintf(query, table)
	if s.Dialect != dialect.Postgres {
		return query
	}
	var (
		b strings.Builder
		n int
	)
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		fmt.Fprintf(&b, "$%d", n)
	}
	return b.String()
}

func validIdentifier(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
