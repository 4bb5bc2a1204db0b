// Package telemetry keeps run metrics in a private Prometheus registry. A
// batch run is never scraped, so the registry is written out in textfile
// collector format when the run ends.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	reg *prometheus.Registry

	RowsRead       prometheus.Counter
	RowsWritten    prometheus.Counter
	ColumnsDropped prometheus.Gauge
	ColumnsMissing prometheus.Gauge
	Duration       prometheus.Gauge
	LastSuccess    prometheus.Gauge
	Failures       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coltrim", Name: "rows_read_total",
			Help: "Data rows read from the source.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coltrim", Name: "rows_written_total",
			Help: "Data rows pushed to every sink.",
		}),
		ColumnsDropped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coltrim", Name: "columns_dropped",
			Help: "Drop columns found in the source header.",
		}),
		ColumnsMissing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coltrim", Name: "columns_missing",
			Help: "Drop columns absent from the source header.",
		}),
		Duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coltrim", Name: "run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coltrim", Name: "last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coltrim", Name: "run_failures_total",
			Help: "Failed runs by error kind.",
		}, []string{"kind"}),
	}
	m.reg.MustRegister(m.RowsRead, m.RowsWritten, m.ColumnsDropped, m.ColumnsMissing,
		m.Duration, m.LastSuccess, m.Failures)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) ObserveSuccess(d time.Duration, at time.Time) {
	m.Duration.Set(d.Seconds())
	m.LastSuccess.Set(float64(at.Unix()))
}

func (m *Metrics) ObserveFailure(kind string, d time.Duration) {
	m.Duration.Set(d.Seconds())
	m.Failures.WithLabelValues(kind).Inc()
}

// WriteTextfile writes the registry to path (node_exporter textfile format).
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
