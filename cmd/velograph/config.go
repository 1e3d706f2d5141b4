package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/velograph/dbs"
	"github.com/syssam/velograph/dialect"
)

// Config is the CLI configuration. It is read from a YAML file and then
// overridden by command-line flags.
//
//	driver: sqlite
//	dsn: file:graph.db
//	namespace: n
//	database: d
//	strict: false
//	schema: schema.yaml
//	log_level: info
type Config struct {
	Driver    string `yaml:"driver"`
	DSN       string `yaml:"dsn"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Strict    bool   `yaml:"strict"`
	Schema    string `yaml:"schema"`
	Retries   int    `yaml:"retries"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaultConfig() Config {
	return Config{
		Driver:    dialect.SQLite,
		DSN:       "file:velograph.db",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// loadConfig reads the YAML file at path on top of the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Driver {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return fmt.Errorf("invalid driver %q: must be 'sqlite', 'postgres' or 'mysql'", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("dsn is required")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.New("invalid log-format: must be 'text' or 'json'")
	}
	return nil
}

// options returns the operation options selected by the configuration.
func (c Config) options() *dbs.Options {
	return dbs.NewOptions().WithNS(c.Namespace).WithDB(c.Database).WithStrict(c.Strict)
}

func (c Config) logger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", s)
	}
}
