package spec

import "time"

type csvSink struct {
	Path string `yaml:"path"`
	Perm uint32 `yaml:"perm"`
}

type kafkaSink struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	Acks      int16    `yaml:"required_acks"`
	KeyColumn string   `yaml:"key_column"`
	Encoding  string   `yaml:"encoding"` // json|protobuf
	BatchSize int      `yaml:"batch_size"`
	ClientID  string   `yaml:"client_id"`
	Version   string   `yaml:"version"`
}

type postgresSink struct {
	DSN          string            `yaml:"dsn"`
	Table        string            `yaml:"table"`
	Columns      map[string]string `yaml:"columns"`
	MaxOpenConns int               `yaml:"max_open_conns"`
	MaxIdleConns int               `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration     `yaml:"max_idle_time"`
	PingTimeout  time.Duration     `yaml:"ping_timeout"`
}

type sinkConfigs struct {
	CSV      csvSink      `yaml:"csv"`
	Kafka    kafkaSink    `yaml:"kafka"`
	Postgres postgresSink `yaml:"postgres"`
}

type TransformSpec struct {
	DropColumns  []string `yaml:"drop_columns"`
	AllowMissing bool     `yaml:"allow_missing"`
	Mode         string   `yaml:"mode"` // memory|stream
}

// File is a job description: one source, the column trim, and N sinks.
type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind string `yaml:"kind"` // "file"
		Path string `yaml:"path"`
	} `yaml:"source"`

	Transform TransformSpec `yaml:"transform"`

	// Sinks run in order; every sink receives every row.
	Sinks       []string    `yaml:"sinks"`
	SinkConfigs sinkConfigs `yaml:"sink_configs"`

	MetricsFile string `yaml:"metrics_file"`
}
