// Package file reads CSV input from a local path or stdin.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"coltrim/internal/table"
	"coltrim/source"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

type Config struct {
	Path string `yaml:"path"`
}

type driver struct {
	cfg   Config
	stdin io.Reader
}

func New() source.Adapter { return &driver{stdin: os.Stdin} }

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("file-source: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return errors.New("file-source: path is required")
	}
	d.cfg = c
	return nil
}

// Open reads the header row. The returned Reader owns the file handle.
func (d *driver) Open(ctx context.Context) (source.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.cfg.Path == Stdin {
		rd, err := table.NewReader(d.stdin)
		if err != nil {
			return nil, withPath(err, "<stdin>")
		}
		return &reader{Reader: rd, path: "<stdin>"}, nil
	}

	f, err := os.Open(d.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &table.NotFoundError{Path: d.cfg.Path}
	}
	if err != nil {
		return nil, fmt.Errorf("file-source: open %s: %w", d.cfg.Path, err)
	}
	rd, err := table.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, withPath(err, d.cfg.Path)
	}
	return &reader{Reader: rd, closer: f, path: d.cfg.Path}, nil
}

type reader struct {
	*table.Reader
	closer io.Closer
	path   string
}

func (r *reader) Read() ([]string, error) {
	row, err := r.Reader.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, withPath(err, r.path)
	}
	return row, err
}

func (r *reader) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

func withPath(err error, path string) error {
	var pe *table.ParseError
	if errors.As(err, &pe) && pe.Path == "" {
		pe.Path = path
	}
	return err
}

func init() { source.Register("file", New) }
