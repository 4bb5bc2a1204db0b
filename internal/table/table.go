// Package table holds the in-memory table model, the CSV codec used to read
// and write it, and the column projection that removes dropped columns.
package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

// bom is the UTF-8 byte order mark spreadsheet exports put before the header.
var bom = []byte{0xef, 0xbb, 0xbf}

// Table is an ordered list of rows sharing one ordered header.
type Table struct {
	Header []string
	Rows   [][]string
}

/* ────────── reading ────────── */

// Reader streams rows from CSV input. The header is consumed on construction
// and every following row must have exactly len(Header()) fields.
type Reader struct {
	cr     *csv.Reader
	header []string
}

// NewReader reads the header row from r. Empty input is a ParseError. A
// leading byte order mark is not part of the first column name.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	if lead, _ := br.Peek(len(bom)); bytes.Equal(lead, bom) {
		_, _ = br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = 0 // first record fixes the width
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Line: 1, Err: errors.New("missing header row")}
	}
	if err != nil {
		return nil, toParseError(err)
	}
	return &Reader{cr: cr, header: header}, nil
}

func (r *Reader) Header() []string { return r.header }

// Read returns the next row or io.EOF.
func (r *Reader) Read() ([]string, error) {
	rec, err := r.cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, toParseError(err)
	}
	return rec, nil
}

// RowSource is anything that yields a header and rows until io.EOF.
type RowSource interface {
	Header() []string
	Read() ([]string, error)
}

// Collect drains src into a Table.
func Collect(src RowSource) (*Table, error) {
	t := &Table{Header: src.Header()}
	for {
		row, err := src.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, row)
	}
}

func toParseError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return &ParseError{Err: err}
}

/* ────────── writing ────────── */

// Writer emits CSV with \n line endings and minimal quoting.
type Writer struct {
	cw *csv.Writer
}

func NewWriter(w io.Writer) *Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = false
	return &Writer{cw: cw}
}

func (w *Writer) WriteRow(row []string) error { return w.cw.Write(row) }

// Flush pushes buffered rows to the underlying writer and reports the first
// write error seen so far.
func (w *Writer) Flush() error {
	w.cw.Flush()
	return w.cw.Error()
}

// Write serializes the header followed by every row, without an index column.
func (t *Table) Write(w io.Writer) error {
	tw := NewWriter(w)
	if err := tw.WriteRow(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := tw.WriteRow(row); err != nil {
			return err
		}
	}
	return tw.Flush()
}

/* ────────── transforming ────────── */

// DropColumns removes the named columns from the header and every row in
// place. With allowMissing unset a name absent from the header is a
// MissingColumnError and the table is left untouched.
func (t *Table) DropColumns(drop []string, allowMissing bool) (*Projection, error) {
	p, err := NewProjection(t.Header, drop, allowMissing)
	if err != nil {
		return nil, err
	}
	t.Header = p.Header()
	for i, row := range t.Rows {
		t.Rows[i] = p.Apply(row)
	}
	return p, nil
}
