package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"coltrim/internal/logging"
	"coltrim/internal/table"
	"coltrim/internal/telemetry"
	"coltrim/sink"
	"coltrim/source"
)

// Transform selects which columns are removed and how strictly.
type Transform struct {
	DropColumns  []string
	AllowMissing bool
	Stream       bool // row by row instead of load-all
}

// Stats summarises one run.
type Stats struct {
	RowsRead      int
	RowsWritten   int
	OutputColumns []string
	Dropped       []string
	Missing       []string
	Duration      time.Duration
}

type namedSink struct {
	name string
	s    sink.Adapter
}

type Runner struct {
	source    source.Adapter
	transform Transform
	sinks     []namedSink
	metrics   *telemetry.Metrics
	log       *slog.Logger
}

func NewRunner() *Runner { return &Runner{log: logging.Component("runner")} }

func (r *Runner) SetSource(s source.Adapter)          { r.source = s }
func (r *Runner) SetTransform(t Transform)            { r.transform = t }
func (r *Runner) AddSink(name string, s sink.Adapter) { r.sinks = append(r.sinks, namedSink{name, s}) }
func (r *Runner) SetMetrics(m *telemetry.Metrics)     { r.metrics = m }
func (r *Runner) Transform() Transform                { return r.transform }

// Run opens the source, trims every row and hands it to every sink. Sinks
// are committed only after the last row, local ones after every remote one;
// on any error the rest are closed uncommitted, which discards their output.
func (r *Runner) Run(ctx context.Context) (st Stats, err error) {
	if r.source == nil {
		return st, errors.New("runner: no source configured")
	}
	if len(r.sinks) == 0 {
		return st, errors.New("runner: no sinks configured")
	}
	start := time.Now()
	defer func() { st.Duration = time.Since(start) }()

	src, err := r.source.Open(ctx)
	if err != nil {
		return st, err
	}
	defer src.Close()

	// memory mode loads every row before removing columns, so malformed
	// input is reported ahead of a bad drop set
	var (
		proj *table.Projection
		rows table.RowSource = src
	)
	if r.transform.Stream {
		proj, err = table.NewProjection(src.Header(), r.transform.DropColumns, r.transform.AllowMissing)
		if err != nil {
			return st, err
		}
	} else {
		tbl, err := table.Collect(src)
		if err != nil {
			return st, err
		}
		if proj, err = tbl.DropColumns(r.transform.DropColumns, r.transform.AllowMissing); err != nil {
			return st, err
		}
		st.RowsRead = len(tbl.Rows)
		rows = &memRows{t: tbl}
	}
	st.OutputColumns, st.Dropped, st.Missing = proj.Header(), proj.Dropped(), proj.Missing()
	if len(st.Missing) > 0 {
		r.log.Warn("drop columns not in header", slog.Any("columns", st.Missing))
	}
	if r.metrics != nil {
		r.metrics.ColumnsDropped.Set(float64(len(st.Dropped)))
		r.metrics.ColumnsMissing.Set(float64(len(st.Missing)))
	}

	for _, ns := range r.sinks {
		defer ns.s.Close()
	}
	for _, ns := range r.sinks {
		if err := ns.s.Open(ctx, proj.Header()); err != nil {
			return st, fmt.Errorf("sink %s: %w", ns.name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		row, err := rows.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, err
		}
		if r.transform.Stream {
			st.RowsRead++
			row = proj.Apply(row)
		}
		for _, ns := range r.sinks {
			if err := ns.s.Push(row); err != nil {
				return st, fmt.Errorf("sink %s: %w", ns.name, err)
			}
		}
		st.RowsWritten++
	}

	for _, ns := range commitOrder(r.sinks) {
		if err := ns.s.Commit(); err != nil {
			return st, fmt.Errorf("sink %s: %w", ns.name, err)
		}
	}
	if r.metrics != nil {
		r.metrics.RowsRead.Add(float64(st.RowsRead))
		r.metrics.RowsWritten.Add(float64(st.RowsWritten))
	}
	r.log.Info("trim complete",
		slog.Int("rows", st.RowsWritten),
		slog.Any("dropped", st.Dropped),
		slog.Int("columns_out", len(st.OutputColumns)),
	)
	return st, nil
}

// commitOrder puts sink.Local sinks after the others, keeping registration
// order within each group.
func commitOrder(sinks []namedSink) []namedSink {
	out := make([]namedSink, 0, len(sinks))
	var local []namedSink
	for _, ns := range sinks {
		if _, ok := ns.s.(sink.Local); ok {
			local = append(local, ns)
			continue
		}
		out = append(out, ns)
	}
	return append(out, local...)
}

// memRows replays a collected table.
type memRows struct {
	t *table.Table
	i int
}

func (m *memRows) Header() []string { return m.t.Header }

func (m *memRows) Read() ([]string, error) {
	if m.i >= len(m.t.Rows) {
		return nil, io.EOF
	}
	row := m.t.Rows[m.i]
	m.i++
	return row, nil
}
