// Command velograph stores and inspects graph edges in a velograph datastore.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/syssam/velograph/dialect/sql"
	"github.com/syssam/velograph/kvs"
)

// ExitError is an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const usage = `
velograph - store and inspect graph edges.

Usage:
  velograph [options] COMMAND [ARGS]

Commands:
  define [SCHEMA]               Define the tables of a schema file.
  tables                        List the defined tables.
  create ID [FIELD=VALUE...]    Store a record.
  relate LEFT REL RIGHT [FIELD=VALUE...]
                                Store the edge LEFT -> REL -> RIGHT. A REL
                                without key ("likes:") gets a generated one.
  edges ID in|out               List the peers of a record.
  count ID                      Print the graph count of a relation record.
  watch [SCHEMA]                Define the tables again whenever the schema changes.

Options:
`

// run parses args and runs one command.
func run(ctx context.Context, out, logW io.Writer, args []string) error {
	cfg, cmd, cmdArgs, exit, err := parseArgs(args, out)
	if err != nil || exit {
		return err
	}
	log := cfg.logger(logW)
	log.DebugContext(ctx, "configuration loaded", "driver", cfg.Driver, "namespace", cfg.Namespace, "database", cfg.Database)

	c, ok := commands[cmd]
	if !ok {
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}
	if len(cmdArgs) < c.min || c.max >= 0 && len(cmdArgs) > c.max {
		return &ExitError{Code: 2, Message: fmt.Sprintf("usage: velograph %s", c.usage)}
	}

	opts := []kvs.Option{kvs.WithLogger(log), kvs.WithRetries(cfg.Retries)}
	if level, _ := parseLevel(cfg.LogLevel); level <= slog.LevelDebug {
		opts = append(opts, kvs.WithStats(sql.WithSlowStatementLog(log)))
	}
	ds, err := kvs.Open(ctx, cfg.Driver, cfg.DSN, opts...)
	if err != nil {
		return err
	}
	defer ds.Close()
	err = c.run(ctx, &env{cfg: cfg, ds: ds, log: log, out: out}, cmdArgs)
	if stats := ds.Stats(); stats != nil {
		log.DebugContext(ctx, "statement statistics", "stats", stats.Stats().String())
	}
	return err
}

func parseArgs(args []string, out io.Writer) (Config, string, []string, bool, error) {
	fs := flag.NewFlagSet("velograph", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprint(out, usage)
		fs.PrintDefaults()
	}

	def := defaultConfig()
	var (
		configPath = fs.String("config", "", "Path to a YAML configuration file.")
		driver     = fs.String("driver", def.Driver, "Database driver: 'sqlite', 'postgres' or 'mysql'.")
		dsn        = fs.String("dsn", def.DSN, "Data source name of the database.")
		ns         = fs.String("ns", "", "Namespace to use.")
		db         = fs.String("db", "", "Database to use.")
		strict     = fs.Bool("strict", false, "Reject tables that were not defined.")
		schema     = fs.String("schema", "", "Path to the schema file.")
		retries    = fs.Int("retries", 0, "Number of times a conflicting transaction is retried.")
		logLevel   = fs.String("log-level", def.LogLevel, "Logging level: 'debug', 'info', 'warn', 'error'.")
		logFormat  = fs.String("log-format", def.LogFormat, "Log output format: 'text' or 'json'.")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Config{}, "", nil, true, nil
		}
		return Config{}, "", nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return Config{}, "", nil, true, nil
	}

	cfg := def
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			return Config{}, "", nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
	}
	// Flags given explicitly win over the configuration file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "dsn":
			cfg.DSN = *dsn
		case "ns":
			cfg.Namespace = *ns
		case "db":
			cfg.Database = *db
		case "strict":
			cfg.Strict = *strict
		case "schema":
			cfg.Schema = *schema
		case "retries":
			cfg.Retries = *retries
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})
	if err := cfg.validate(); err != nil {
		return Config{}, "", nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, fs.Arg(0), fs.Args()[1:], false, nil
}
