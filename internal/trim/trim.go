// Package trim is the column-trim transformer: read a CSV file, remove a set
// of named columns, write what is left to another CSV file.
//
// Errors are the typed values from package table: NotFoundError,
// ParseError, MissingColumnError and WriteError. The destination is either
// fully written or left as it was.
package trim

import (
	"context"
	"errors"

	"coltrim/internal/config"
	"coltrim/internal/pipeline"
	"coltrim/internal/table"
	"coltrim/sink/csvfile"
	"coltrim/source/file"
)

type Mode string

const (
	ModeMemory Mode = "memory"
	ModeStream Mode = "stream"
)

type Config struct {
	SourcePath   string
	DestPath     string
	DropColumns  []string // nil → table.DefaultDropColumns
	AllowMissing bool     // ignore drop columns absent from the header
	Mode         Mode     // "" → ModeMemory
}

// NewRunner wires a file source and a CSV file sink for cfg.
func NewRunner(cfg Config) (*pipeline.Runner, error) {
	if cfg.SourcePath == "" {
		return nil, errors.New("trim: source path is required")
	}
	if cfg.DestPath == "" {
		return nil, errors.New("trim: destination path is required")
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeMemory
	}
	if err := config.ValidateMode(string(cfg.Mode)); err != nil {
		return nil, err
	}
	drop := cfg.DropColumns
	if drop == nil {
		drop = table.DefaultDropColumns
	}

	src := file.New()
	if err := src.Configure(file.Config{Path: cfg.SourcePath}); err != nil {
		return nil, err
	}
	dst := csvfile.New()
	if err := dst.Configure(csvfile.Config{Path: cfg.DestPath}); err != nil {
		return nil, err
	}

	r := pipeline.NewRunner()
	r.SetSource(src)
	r.SetTransform(pipeline.Transform{
		DropColumns:  drop,
		AllowMissing: cfg.AllowMissing,
		Stream:       cfg.Mode == ModeStream,
	})
	r.AddSink("csv", dst)
	return r, nil
}

// Run trims cfg.SourcePath into cfg.DestPath.
func Run(ctx context.Context, cfg Config) (pipeline.Stats, error) {
	r, err := NewRunner(cfg)
	if err != nil {
		return pipeline.Stats{}, err
	}
	return r.Run(ctx)
}
