package pipeline

import (
	"fmt"
	"io/fs"

	"coltrim/internal/config"
	"coltrim/internal/spec"
	"coltrim/sink"
	"coltrim/sink/csvfile"
	"coltrim/sink/kafka"
	"coltrim/sink/postgres"
	"coltrim/sink/stdout"
	"coltrim/source"
	"coltrim/source/file"
)

// Compile loads a job file and wires its source and sinks into a Runner.
func Compile(path string) (*Runner, spec.File, error) {
	job, err := config.LoadJobSpec(path)
	if err != nil {
		return nil, job, err
	}
	r := NewRunner()
	if err := Build(job, r); err != nil {
		return nil, job, err
	}
	return r, job, nil
}

// Build configures r from an already loaded job.
func Build(job spec.File, r *Runner) error {
	src, err := source.NewAdapter(job.Source.Kind)
	if err != nil {
		return err
	}
	switch job.Source.Kind {
	case "file":
		err = src.Configure(file.Config{Path: job.Source.Path})
	default:
		err = fmt.Errorf("no config block for source %q", job.Source.Kind)
	}
	if err != nil {
		return err
	}
	r.SetSource(src)

	r.SetTransform(Transform{
		DropColumns:  job.Transform.DropColumns,
		AllowMissing: job.Transform.AllowMissing,
		Stream:       job.Transform.Mode == config.ModeStream,
	})

	for _, name := range job.Sinks {
		sDrv, err := sink.NewAdapter(name)
		if err != nil {
			return err
		}

		sc := job.SinkConfigs
		switch name {
		case "csv":
			err = sDrv.Configure(csvfile.Config{
				Path: sc.CSV.Path,
				Perm: fs.FileMode(sc.CSV.Perm),
			})
		case "stdout":
			err = sDrv.Configure(stdout.Config{})
		case "kafka":
			err = sDrv.Configure(kafka.Config{
				Brokers:   sc.Kafka.Brokers,
				Topic:     sc.Kafka.Topic,
				Acks:      sc.Kafka.Acks,
				KeyColumn: sc.Kafka.KeyColumn,
				Encoding:  sc.Kafka.Encoding,
				BatchSize: sc.Kafka.BatchSize,
				ClientID:  sc.Kafka.ClientID,
				Version:   sc.Kafka.Version,
			})
		case "postgres":
			err = sDrv.Configure(postgres.Config{
				DSN:          sc.Postgres.DSN,
				Table:        sc.Postgres.Table,
				Columns:      sc.Postgres.Columns,
				MaxOpenConns: sc.Postgres.MaxOpenConns,
				MaxIdleConns: sc.Postgres.MaxIdleConns,
				MaxIdleTime:  sc.Postgres.MaxIdleTime,
				PingTimeout:  sc.Postgres.PingTimeout,
			})
		default:
			err = fmt.Errorf("no config block for sink %q", name)
		}
		if err != nil {
			return fmt.Errorf("sink %s: %w", name, err)
		}
		r.AddSink(name, sDrv)
	}
	return nil
}
