package engine

import (
	"context"
	"fmt"

	"coltrim/internal/config"
	"coltrim/internal/pipeline"
	"coltrim/internal/telemetry"
	"coltrim/internal/trim"
)

// Config selects what a run does: a job file when JobFile is set, otherwise
// a single file-to-file trim described by Settings.
type Config struct {
	JobFile  string
	Settings config.Settings
}

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. pipeline runner
	var (
		runner      *pipeline.Runner
		metricsFile string
		err         error
	)
	if cfg.JobFile != "" {
		r, job, cErr := pipeline.Compile(cfg.JobFile)
		if cErr != nil {
			return nil, fmt.Errorf("job: %w", cErr)
		}
		runner, metricsFile = r, job.MetricsFile
	} else {
		s := cfg.Settings
		runner, err = trim.NewRunner(trim.Config{
			SourcePath:   s.Source,
			DestPath:     s.Dest,
			DropColumns:  s.DropColumns,
			AllowMissing: s.AllowMissing,
			Mode:         trim.Mode(s.Mode),
		})
		if err != nil {
			return nil, err
		}
		metricsFile = s.MetricsFile
	}

	// 2. metrics
	m := telemetry.New()
	runner.SetMetrics(m)

	return &Engine{
		runner:      runner,
		metrics:     m,
		metricsFile: metricsFile,
	}, nil
}
