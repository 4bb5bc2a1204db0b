package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"coltrim/internal/table"
)

const (
	ModeMemory = "memory" // load, drop, save
	ModeStream = "stream" // row by row
)

type LogCfg struct {
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Settings drive a single trim run without a job file.
type Settings struct {
	Source       string   `koanf:"source"`
	Dest         string   `koanf:"dest"`
	DropColumns  []string `koanf:"drop_columns"`
	AllowMissing bool     `koanf:"allow_missing"`
	Mode         string   `koanf:"mode"`
	MetricsFile  string   `koanf:"metrics_file"`
	Log          LogCfg   `koanf:"log"`
}

func DefaultSettings() Settings {
	return Settings{
		Source:      "netflix_titles.csv",
		Dest:        "trimmed_netflix_titles.csv",
		DropColumns: append([]string(nil), table.DefaultDropColumns...),
		Mode:        ModeMemory,
		Log:         LogCfg{Level: "info"},
	}
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

// LoadSettings merges YAML (if present) with env-vars
// (prefix `COLTRIM__`, delimiter `__`) over DefaultSettings.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Settings{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return Settings{}, fmt.Errorf("settings schema_version %q not supported (want %s)", sv, SupportedSchema)
	}

	if err := k.Load(env.Provider("COLTRIM__", ".", envKey), nil); err != nil {
		return Settings{}, err
	}

	var cfg Settings
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	// env values arrive as strings; "a,b,c" is a list
	if raw, ok := k.Get("drop_columns").(string); ok {
		cfg.DropColumns = SplitList(raw)
	}
	applyDefaults(&cfg)
	if err := ValidateMode(cfg.Mode); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// envKey maps COLTRIM__LOG__LEVEL → log.level.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "COLTRIM__")), "__", ".")
}

// SplitList splits a comma separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// defaults
// ---------------------------------------------------------------------------

func applyDefaults(c *Settings) {
	d := DefaultSettings()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.Dest == "" {
		c.Dest = d.Dest
	}
	if c.DropColumns == nil {
		c.DropColumns = d.DropColumns
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	c.Mode = strings.ToLower(c.Mode)
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// ValidateMode accepts memory or stream.
func ValidateMode(m string) error {
	switch m {
	case ModeMemory, ModeStream:
		return nil
	}
	return fmt.Errorf("unsupported mode %q (want %s|%s)", m, ModeMemory, ModeStream)
}
