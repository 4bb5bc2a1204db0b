package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"coltrim/internal/spec"
)

const SupportedSchema = "v1"

// LoadJobSpec parses a job YAML and validates schema_version. Relative
// source, sink and metrics paths are resolved against the job file's
// directory.
func LoadJobSpec(path string) (spec.File, error) {
	var job spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return job, err
	}
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return job, fmt.Errorf("job %s: %w", path, err)
	}
	if job.SchemaVersion == "" {
		job.SchemaVersion = SupportedSchema
	}
	if job.SchemaVersion != SupportedSchema {
		return job, fmt.Errorf("job schema_version %q not supported (want %q)", job.SchemaVersion, SupportedSchema)
	}
	if job.Source.Kind == "" {
		job.Source.Kind = "file"
	}
	if len(job.Sinks) == 0 {
		return job, fmt.Errorf("job %s: at least one sink is required", path)
	}
	if job.Transform.DropColumns == nil {
		job.Transform.DropColumns = DefaultSettings().DropColumns
	}
	if job.Transform.Mode == "" {
		job.Transform.Mode = ModeMemory
	}
	if err := ValidateMode(job.Transform.Mode); err != nil {
		return job, err
	}

	base := filepath.Dir(path)
	job.Source.Path = resolve(base, job.Source.Path)
	job.SinkConfigs.CSV.Path = resolve(base, job.SinkConfigs.CSV.Path)
	job.MetricsFile = resolve(base, job.MetricsFile)
	return job, nil
}

func resolve(base, p string) string {
	if p == "" || p == "-" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
