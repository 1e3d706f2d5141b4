package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// File is a schema file listing the tables of one database.
//
//	namespace: n
//	database: d
//	tables:
//	  - name: person
//	    kind: normal
//	  - name: likes
//	    kind: relation
//	    enforced: true
//	  - name: recent_likes
//	    drop: true
type File struct {
	Namespace string
	Database  string
	Tables    []*Table
}

type fileDoc struct {
	Namespace string     `yaml:"namespace"`
	Database  string     `yaml:"database"`
	Tables    []tableDoc `yaml:"tables"`
}

// Parse reads a schema file from r.
func Parse(r io.Reader) (*File, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("catalog: parsing schema: %w", err)
	}
	f := &File{Namespace: doc.Namespace, Database: doc.Database}
	seen := make(map[string]bool, len(doc.Tables))
	for _, d := range doc.Tables {
		t, err := d.table()
		if err != nil {
			return nil, err
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("catalog: table %q defined twice", t.Name)
		}
		seen[t.Name] = true
		f.Tables = append(f.Tables, t)
	}
	return f, nil
}

// LoadFile reads the schema file at path.
func LoadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Marshal encodes the file as YAML.
func (f *File) Marshal() ([]byte, error) {
	doc := fileDoc{Namespace: f.Namespace, Database: f.Database}
	for _, t := range f.Tables {
		doc.Tables = append(doc.Tables, t.doc())
	}
	return yaml.Marshal(doc)
}

// Watch calls fn with the parsed schema whenever the file at path is
// written, until ctx is done. fn is also called once with the current
// contents before watching starts. Parse errors are logged and skipped;
// an error returned by fn stops the watch.
func Watch(ctx context.Context, path string, fn func(*File) error) error {
	f, err := LoadFile(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: watch: %w", err)
	}
	defer w.Close()
	// Watch the directory so editors that replace the file are observed.
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("catalog: watch: %w", err)
	}
	name := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "schema watcher error", "path", path, "error", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			f, err := LoadFile(path)
			if err != nil {
				slog.WarnContext(ctx, "ignoring invalid schema", "path", path, "error", err)
				continue
			}
			slog.InfoContext(ctx, "schema reloaded", "path", path, "tables", len(f.Tables))
			if err := fn(f); err != nil {
				return err
			}
		}
	}
}
