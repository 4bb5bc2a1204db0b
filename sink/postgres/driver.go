// Package postgres bulk-loads the trimmed table into a PostgreSQL table with
// COPY FROM, inside a single transaction.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"

	"coltrim/sink"
)

// DSNEnv is consulted when Config.DSN is empty.
const DSNEnv = "COLTRIM_DB_DSN"

// DefaultColumns maps the trimmed Netflix export onto the titles table.
var DefaultColumns = map[string]string{"type": "title_type"}

type Config struct {
	DSN          string            `yaml:"dsn"`
	Table        string            `yaml:"table"`
	Columns      map[string]string `yaml:"columns"` // csv name → db column; unmapped names pass through
	MaxOpenConns int               `yaml:"max_open_conns"`
	MaxIdleConns int               `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration     `yaml:"max_idle_time"`
	PingTimeout  time.Duration     `yaml:"ping_timeout"`
}

type driver struct {
	cfg    Config
	openDB func(Config) (*sql.DB, error)

	db        *sql.DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	args      []any
	committed bool
}

func New() sink.Adapter { return &driver{openDB: openDB} }

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("postgres-sink: expected Config, got %T", raw)
	}
	if c.DSN == "" {
		c.DSN = os.Getenv(DSNEnv)
	}
	if c.DSN == "" {
		return fmt.Errorf("postgres-sink: dsn is required (or set %s)", DSNEnv)
	}
	if c.Table == "" {
		return errors.New("postgres-sink: table is required")
	}
	if c.Columns == nil {
		c.Columns = DefaultColumns
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 25
	}
	if c.MaxIdleTime == 0 {
		c.MaxIdleTime = 15 * time.Minute
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	d.cfg = c
	return nil
}

// openDB returns a sql.DB connection pool.
func openDB(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)
	return db, nil
}

// TargetColumns renames header entries through mapping.
func TargetColumns(header []string, mapping map[string]string) []string {
	cols := make([]string, len(header))
	for i, h := range header {
		if to, ok := mapping[h]; ok && to != "" {
			cols[i] = to
		} else {
			cols[i] = h
		}
	}
	return cols
}

func (d *driver) Open(ctx context.Context, header []string) error {
	db, err := d.openDB(d.cfg)
	if err != nil {
		return fmt.Errorf("postgres-sink: open: %w", err)
	}
	d.db = db

	pingCtx, cancel := context.WithTimeout(ctx, d.cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("postgres-sink: ping: %w", err)
	}

	if d.tx, err = db.BeginTx(ctx, nil); err != nil {
		return fmt.Errorf("postgres-sink: begin: %w", err)
	}
	cols := TargetColumns(header, d.cfg.Columns)
	if d.stmt, err = d.tx.Prepare(pq.CopyIn(d.cfg.Table, cols...)); err != nil {
		return fmt.Errorf("postgres-sink: prepare copy into %s: %w", d.cfg.Table, err)
	}
	d.args = make([]any, len(cols))
	return nil
}

// Push copies one row; empty fields load as NULL.
func (d *driver) Push(row []string) error {
	for i, v := range row {
		if v == "" {
			d.args[i] = nil
		} else {
			d.args[i] = v
		}
	}
	if _, err := d.stmt.Exec(d.args...); err != nil {
		return fmt.Errorf("postgres-sink: copy row: %w", err)
	}
	return nil
}

func (d *driver) Commit() error {
	// an Exec without args flushes the COPY buffer
	if _, err := d.stmt.Exec(); err != nil {
		return fmt.Errorf("postgres-sink: flush copy: %w", err)
	}
	if err := d.stmt.Close(); err != nil {
		return fmt.Errorf("postgres-sink: close copy: %w", err)
	}
	d.stmt = nil
	if err := d.tx.Commit(); err != nil {
		return fmt.Errorf("postgres-sink: commit: %w", err)
	}
	d.committed = true
	return nil
}

// Close rolls back an uncommitted load and releases the pool.
func (d *driver) Close() error {
	if d.stmt != nil {
		_ = d.stmt.Close()
		d.stmt = nil
	}
	if d.tx != nil && !d.committed {
		_ = d.tx.Rollback()
	}
	d.tx = nil
	if d.db == nil {
		return nil
	}
	db := d.db
	d.db = nil
	return db.Close()
}

func init() { sink.Register("postgres", New) }
