// Package stdout prints the trimmed table as CSV. Rows are buffered and only
// written on Commit so a failed run prints nothing.
package stdout

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"coltrim/internal/table"
	"coltrim/sink"
)

/* ────────── public config ────────── */
type Config struct {
	Out io.Writer `yaml:"-"` // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	out io.Writer
	tbl *table.Table
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	d.out = c.Out
	if d.out == nil {
		d.out = os.Stdout
	}
	return nil
}

func (d *driver) Open(_ context.Context, header []string) error {
	d.tbl = &table.Table{Header: header}
	return nil
}

func (d *driver) Push(row []string) error {
	d.tbl.Rows = append(d.tbl.Rows, row)
	return nil
}

func (d *driver) Commit() error {
	var buf bytes.Buffer
	if err := d.tbl.Write(&buf); err != nil {
		return err
	}
	if _, err := buf.WriteTo(d.out); err != nil {
		return &table.WriteError{Path: "<stdout>", Err: err}
	}
	return nil
}

func (d *driver) Close() error {
	d.tbl = nil
	return nil
}

// Local implements sink.Local.
func (d *driver) Local() {}

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
