package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"coltrim/internal/config"
	"coltrim/internal/engine"
	"coltrim/internal/logging"
)

// Exit codes per error kind.
const (
	exitOther         = 1
	exitNotFound      = 2
	exitParse         = 3
	exitMissingColumn = 4
	exitWrite         = 5
)

type flags struct {
	configFile   string
	source       string
	dest         string
	drop         []string
	allowMissing bool
	mode         string
	metricsFile  string
	logLevel     string
	logJSON      bool
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:   "coltrim",
		Short: "Remove named columns from a CSV file",
		Long: `coltrim reads a CSV file, removes a set of named columns and writes the
remaining columns, in their original order, to a new CSV file.

By default it trims the Netflix titles export (netflix_titles.csv) down to
the columns loaded into the titles table, dropping:
  show_id, cast, date_added, rating, duration, listed_in, description

Settings are read from --config (YAML), then COLTRIM__* environment
variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := config.LoadSettings(f.configFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, f, &s)
			if err := config.ValidateMode(s.Mode); err != nil {
				return err
			}
			setupLogging(s.Log.Level, s.Log.JSON)
			return run(cmd.Context(), engine.Config{Settings: s})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.BoolVar(&f.logJSON, "log-json", false, "log as JSON")

	fs := root.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "settings YAML file")
	fs.StringVarP(&f.source, "source", "s", "", "source CSV path (- for stdin)")
	fs.StringVarP(&f.dest, "dest", "o", "", "destination CSV path")
	fs.StringSliceVarP(&f.drop, "drop", "d", nil, "columns to remove (comma separated)")
	fs.BoolVar(&f.allowMissing, "allow-missing", false, "ignore drop columns absent from the header")
	fs.StringVar(&f.mode, "mode", "", "memory (load all) or stream (row by row)")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus textfile metrics here")

	root.AddCommand(newJobCmd(&f))
	return root
}

func newJobCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "job [job.yml]",
		Short: "Run a job file (one source, the trim, any number of sinks)",
		Long: `Runs a YAML job file. Sinks: csv, stdout, kafka, postgres.

Example:
  schema_version: v1
  source: { kind: file, path: netflix_titles.csv }
  transform: { mode: stream }
  sinks: [csv, postgres]
  sink_configs:
    csv: { path: trimmed_netflix_titles.csv }
    postgres: { table: titles }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := logging.FromEnv()
			if cmd.Flags().Changed("log-level") {
				opts.Level = f.logLevel
			}
			if cmd.Flags().Changed("log-json") {
				opts.JSON = f.logJSON
			}
			setupLogging(opts.Level, opts.JSON)
			return run(cmd.Context(), engine.Config{JobFile: args[0]})
		},
	}
}

// applyFlags overrides s with the flags the user actually set.
func applyFlags(cmd *cobra.Command, f flags, s *config.Settings) {
	changed := cmd.Flags().Changed
	if changed("source") {
		s.Source = f.source
	}
	if changed("dest") {
		s.Dest = f.dest
	}
	if changed("drop") {
		s.DropColumns = f.drop
	}
	if changed("allow-missing") {
		s.AllowMissing = f.allowMissing
	}
	if changed("mode") {
		s.Mode = strings.ToLower(f.mode)
	}
	if changed("metrics-file") {
		s.MetricsFile = f.metricsFile
	}
	if changed("log-level") {
		s.Log.Level = f.logLevel
	}
	if changed("log-json") {
		s.Log.JSON = f.logJSON
	}
}

func setupLogging(level string, json bool) {
	logging.Configure(logging.Options{Level: level, JSON: json})
}

func run(ctx context.Context, cfg engine.Config) error {
	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	st, err := e.Run(ctx)
	if err != nil {
		return err
	}
	logging.L().Info("done",
		slog.Int("rows_read", st.RowsRead),
		slog.Int("rows_written", st.RowsWritten),
		slog.Duration("took", st.Duration),
	)
	return nil
}

func exitCode(err error) int {
	switch engine.ErrorKind(err) {
	case "not_found":
		return exitNotFound
	case "parse":
		return exitParse
	case "missing_column":
		return exitMissingColumn
	case "write":
		return exitWrite
	default:
		return exitOther
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "coltrim: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}
