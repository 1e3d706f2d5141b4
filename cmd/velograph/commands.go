package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/syssam/velograph/catalog"
	"github.com/syssam/velograph/doc"
	"github.com/syssam/velograph/kvs"
	"github.com/syssam/velograph/record"
	"github.com/syssam/velograph/value"
)

type env struct {
	cfg Config
	ds  *kvs.Datastore
	log *slog.Logger
	out io.Writer
}

type command struct {
	usage    string
	min, max int // argument count, max < 0 is unbounded
	run      func(context.Context, *env, []string) error
}

var commands = map[string]command{
	"define": {usage: "define [SCHEMA]", max: 1, run: runDefine},
	"tables": {usage: "tables", run: runTables},
	"create": {usage: "create ID [FIELD=VALUE...]", min: 1, max: -1, run: runCreate},
	"relate": {usage: "relate LEFT REL RIGHT [FIELD=VALUE...]", min: 3, max: -1, run: runRelate},
	"edges":  {usage: "edges ID in|out", min: 2, max: 2, run: runEdges},
	"count":  {usage: "count ID", min: 1, max: 1, run: runCount},
	"watch":  {usage: "watch [SCHEMA]", max: 1, run: runWatch},
}

func (e *env) schema(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if e.cfg.Schema == "" {
		return "", &ExitError{Code: 2, Message: "no schema file given"}
	}
	return e.cfg.Schema, nil
}

func runDefine(ctx context.Context, e *env, args []string) error {
	path, err := e.schema(args)
	if err != nil {
		return err
	}
	f, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}
	return e.define(ctx, f)
}

// define stores the tables of f. The namespace and database of the file
// take precedence over the configured ones.
func (e *env) define(ctx context.Context, f *catalog.File) error {
	opt := e.cfg.options()
	if f.Namespace != "" {
		opt = opt.WithNS(f.Namespace)
	}
	if f.Database != "" {
		opt = opt.WithDB(f.Database)
	}
	ns, db, err := opt.NSDB()
	if err != nil {
		return err
	}
	err = e.ds.Update(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
		for _, tb := range f.Tables {
			if err := tx.DefineTable(ctx, ns, db, tb); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.log.InfoContext(ctx, "tables defined", "namespace", ns, "database", db, "tables", len(f.Tables))
	return nil
}

func runTables(ctx context.Context, e *env, _ []string) error {
	ns, db, err := e.cfg.options().NSDB()
	if err != nil {
		return err
	}
	return e.ds.View(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
		tables, err := tx.Tables(ctx, ns, db)
		if err != nil {
			return err
		}
		for _, tb := range tables {
			fmt.Fprintln(e.out, describe(tb))
		}
		return nil
	})
}

func describe(tb *catalog.Table) string {
	var b strings.Builder
	b.WriteString(tb.Name)
	switch k := tb.Kind.(type) {
	case catalog.Relation:
		b.WriteString(" relation")
		if len(k.In) > 0 || len(k.Out) > 0 {
			fmt.Fprintf(&b, " in=%s out=%s", strings.Join(k.In, "|"), strings.Join(k.Out, "|"))
		}
		if k.Enforced {
			b.WriteString(" enforced")
		}
	case catalog.Normal:
		b.WriteString(" normal")
	default:
		b.WriteString(" any")
	}
	if tb.Drop {
		b.WriteString(" drop")
	}
	return b.String()
}

func runCreate(ctx context.Context, e *env, args []string) error {
	id, err := record.Parse(args[0])
	if err != nil {
		return err
	}
	data, err := parseFields(args[1:])
	if err != nil {
		return err
	}
	d, err := doc.Create(ctx, e.ds, e.cfg.options(), id, data)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.out, d.ID)
	return nil
}

func runRelate(ctx context.Context, e *env, args []string) error {
	left, err := record.Parse(args[0])
	if err != nil {
		return err
	}
	rel, err := parseRelation(args[1])
	if err != nil {
		return err
	}
	right, err := record.Parse(args[2])
	if err != nil {
		return err
	}
	data, err := parseFields(args[3:])
	if err != nil {
		return err
	}
	d, err := doc.RelateRecords(ctx, e.ds, e.cfg.options(), left, rel, right, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%s: %s -> %s\n", d.ID, d.Current.Get(value.FieldIn), d.Current.Get(value.FieldOut))
	return nil
}

// parseRelation accepts "table:" for a relation record with a generated key.
func parseRelation(s string) (record.ID, error) {
	if tb, ok := strings.CutSuffix(s, ":"); ok && tb != "" && !strings.Contains(tb, ":") {
		return record.ID{Table: tb}, nil
	}
	return record.Parse(s)
}

func runEdges(ctx context.Context, e *env, args []string) error {
	id, err := record.Parse(args[0])
	if err != nil {
		return err
	}
	dir, err := record.ParseDir(args[1])
	if err != nil {
		return err
	}
	ns, db, err := e.cfg.options().NSDB()
	if err != nil {
		return err
	}
	return e.ds.View(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
		peers, err := tx.Edges(ctx, ns, db, id, dir)
		if err != nil {
			return err
		}
		for _, p := range peers {
			fmt.Fprintln(e.out, p)
		}
		return nil
	})
}

func runCount(ctx context.Context, e *env, args []string) error {
	id, err := record.Parse(args[0])
	if err != nil {
		return err
	}
	ns, db, err := e.cfg.options().NSDB()
	if err != nil {
		return err
	}
	return e.ds.View(ctx, func(ctx context.Context, tx *kvs.Transaction) error {
		n, err := tx.GraphCount(ctx, ns, db, id.Table, id.Key)
		if err != nil {
			return err
		}
		fmt.Fprintln(e.out, n)
		return nil
	})
}

func runWatch(ctx context.Context, e *env, args []string) error {
	path, err := e.schema(args)
	if err != nil {
		return err
	}
	e.log.InfoContext(ctx, "watching schema", "path", path)
	err = catalog.Watch(ctx, path, func(f *catalog.File) error {
		return e.define(ctx, f)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// parseFields parses FIELD=VALUE arguments. Values are read as integers,
// floats or booleans where possible and as strings otherwise.
func parseFields(args []string) (value.Object, error) {
	obj := value.Object{}
	for _, arg := range args {
		f, v, ok := strings.Cut(arg, "=")
		if !ok || f == "" {
			return nil, fmt.Errorf("invalid field %q: expected FIELD=VALUE", arg)
		}
		obj.Put(f, parseValue(v))
	}
	return obj, nil
}

func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
