// Package csvfile writes the trimmed table to a CSV file. Output goes to a
// temp file beside the destination and is renamed into place on Commit, so a
// failed run never leaves a truncated destination behind.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"coltrim/internal/table"
	"coltrim/sink"
)

type Config struct {
	Path string      `yaml:"path"`
	Perm fs.FileMode `yaml:"perm"` // 0 → 0644
}

type driver struct {
	cfg Config

	tmp       *os.File
	w         *table.Writer
	committed bool
}

func New() sink.Adapter { return &driver{} }

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("csv-sink: expected Config, got %T", raw)
	}
	if c.Path == "" {
		return errors.New("csv-sink: path is required")
	}
	if c.Perm == 0 {
		c.Perm = 0o644
	}
	d.cfg = c
	return nil
}

func (d *driver) Open(ctx context.Context, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, base := filepath.Split(d.cfg.Path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return d.fail(err)
	}
	d.tmp = f
	d.w = table.NewWriter(f)
	return d.Push(header)
}

func (d *driver) Push(row []string) error {
	if err := d.w.WriteRow(row); err != nil {
		return d.fail(err)
	}
	return nil
}

// Commit flushes, syncs and renames the temp file over the destination.
func (d *driver) Commit() error {
	if err := d.w.Flush(); err != nil {
		return d.fail(err)
	}
	if err := d.tmp.Chmod(d.cfg.Perm); err != nil {
		return d.fail(err)
	}
	if err := d.tmp.Sync(); err != nil {
		return d.fail(err)
	}
	if err := d.tmp.Close(); err != nil {
		return d.fail(err)
	}
	if err := os.Rename(d.tmp.Name(), d.cfg.Path); err != nil {
		return d.fail(err)
	}
	d.committed = true
	return nil
}

// Close removes the temp file unless Commit succeeded.
func (d *driver) Close() error {
	if d.tmp == nil || d.committed {
		return nil
	}
	name := d.tmp.Name()
	_ = d.tmp.Close()
	d.tmp = nil
	if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return d.fail(err)
	}
	return nil
}

// Local implements sink.Local; Commit is a rename.
func (d *driver) Local() {}

func (d *driver) fail(err error) error {
	return &table.WriteError{Path: d.cfg.Path, Err: err}
}

func init() { sink.Register("csv", New) }
