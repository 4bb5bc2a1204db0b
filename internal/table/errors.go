package table

import (
	"fmt"
	"strings"
)

// NotFoundError reports a source file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("source %s: file not found", e.Path)
}

// ParseError reports input that is not valid delimited text with a header
// row. Line is 1-based and zero when unknown.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, "source "+e.Path)
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}
	parts = append(parts, "parse error")
	msg := strings.Join(parts, ": ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnError reports drop columns absent from the source header.
type MissingColumnError struct {
	Columns []string
}

func (e *MissingColumnError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("column %q not found in header", e.Columns[0])
	}
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return fmt.Sprintf("columns %s not found in header", strings.Join(quoted, ", "))
}

// WriteError reports a destination that could not be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("destination %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
