// Package kafka publishes every trimmed row as one Kafka message.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"coltrim/sink"
)

const (
	EncodingJSON     = "json"
	EncodingProtobuf = "protobuf"

	defaultBatchSize = 500
)

type Config struct {
	Brokers   []string `yaml:"brokers"`
	Topic     string   `yaml:"topic"`
	Acks      int16    `yaml:"required_acks"` // 0,1,-1
	KeyColumn string   `yaml:"key_column"`    // "" → no key
	Encoding  string   `yaml:"encoding"`      // json|protobuf
	BatchSize int      `yaml:"batch_size"`
	ClientID  string   `yaml:"client_id"`
	Version   string   `yaml:"version"`
}

type producerFactory func(Config) (sarama.SyncProducer, error)

type driver struct {
	cfg         Config
	newProducer producerFactory

	p       sarama.SyncProducer
	header  []string
	keyIdx  int
	pending []*sarama.ProducerMessage
	sent    int
}

func New() sink.Adapter { return &driver{newProducer: newSyncProducer} }

func (d *driver) Configure(c any) error {
	cfg, ok := c.(Config)
	if !ok {
		return fmt.Errorf("kafka-sink: want Config, got %T", c)
	}
	if len(cfg.Brokers) == 0 {
		return errors.New("kafka-sink: at least one broker is required")
	}
	if cfg.Topic == "" {
		return errors.New("kafka-sink: topic is required")
	}
	switch cfg.Encoding {
	case "":
		cfg.Encoding = EncodingJSON
	case EncodingJSON, EncodingProtobuf:
	default:
		return fmt.Errorf("kafka-sink: unsupported encoding %q", cfg.Encoding)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	d.cfg = cfg
	return nil
}

func newSyncProducer(cfg Config) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Acks)
	sc.Producer.Return.Successes = true
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	if cfg.Version != "" {
		ver, err := sarama.ParseKafkaVersion(cfg.Version)
		if err != nil {
			return nil, err
		}
		sc.Version = ver
	}
	return sarama.NewSyncProducer(cfg.Brokers, sc)
}

func (d *driver) Open(ctx context.Context, header []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.header = header
	d.keyIdx = -1
	if d.cfg.KeyColumn != "" {
		for i, h := range header {
			if h == d.cfg.KeyColumn {
				d.keyIdx = i
				break
			}
		}
		if d.keyIdx < 0 {
			return fmt.Errorf("kafka-sink: key column %q not in output header", d.cfg.KeyColumn)
		}
	}
	p, err := d.newProducer(d.cfg)
	if err != nil {
		return fmt.Errorf("kafka-sink: producer: %w", err)
	}
	d.p = p
	return nil
}

func (d *driver) Push(row []string) error {
	value, err := d.encode(row)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Value: sarama.ByteEncoder(value),
	}
	if d.keyIdx >= 0 {
		msg.Key = sarama.StringEncoder(row[d.keyIdx])
	}
	d.pending = append(d.pending, msg)
	if len(d.pending) >= d.cfg.BatchSize {
		return d.flush()
	}
	return nil
}

func (d *driver) Commit() error { return d.flush() }

func (d *driver) Close() error {
	d.pending = nil
	if d.p == nil {
		return nil
	}
	p := d.p
	d.p = nil
	return p.Close()
}

func (d *driver) flush() error {
	if len(d.pending) == 0 {
		return nil
	}
	if err := d.p.SendMessages(d.pending); err != nil {
		return fmt.Errorf("kafka-sink: send to %s: %w", d.cfg.Topic, err)
	}
	d.sent += len(d.pending)
	d.pending = d.pending[:0]
	return nil
}

func (d *driver) encode(row []string) ([]byte, error) {
	switch d.cfg.Encoding {
	case EncodingProtobuf:
		fields := make(map[string]any, len(row))
		for i, v := range row {
			fields[d.header[i]] = v
		}
		st, err := structpb.NewStruct(fields)
		if err != nil {
			return nil, fmt.Errorf("kafka-sink: encode: %w", err)
		}
		return proto.Marshal(st)
	default:
		fields := make(map[string]string, len(row))
		for i, v := range row {
			fields[d.header[i]] = v
		}
		return json.Marshal(fields)
	}
}

func init() { sink.Register("kafka", New) }
