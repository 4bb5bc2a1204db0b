package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"coltrim/internal/logging"
	"coltrim/internal/pipeline"
	"coltrim/internal/table"
	"coltrim/internal/telemetry"
)

type Engine struct {
	runner      *pipeline.Runner
	metrics     *telemetry.Metrics
	metricsFile string
}

// Run executes the runner once and flushes metrics, whatever the outcome.
func (e *Engine) Run(ctx context.Context) (pipeline.Stats, error) {
	start := time.Now()
	st, err := e.runner.Run(ctx)
	if err != nil {
		e.metrics.ObserveFailure(ErrorKind(err), time.Since(start))
	} else {
		e.metrics.ObserveSuccess(time.Since(start), time.Now())
	}

	if e.metricsFile != "" {
		if mErr := e.metrics.WriteTextfile(e.metricsFile); mErr != nil {
			logging.Component("engine").Warn("metrics textfile not written",
				slog.String("path", e.metricsFile), slog.Any("error", mErr))
		}
	}
	return st, err
}

func (e *Engine) Metrics() *telemetry.Metrics { return e.metrics }

// ErrorKind classifies err by the taxonomy in package table.
func ErrorKind(err error) string {
	var (
		nf *table.NotFoundError
		pe *table.ParseError
		mc *table.MissingColumnError
		we *table.WriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &mc):
		return "missing_column"
	case errors.As(err, &we):
		return "write"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
