package lemonkv

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

var ErrConfigInvalid = errors.New("invalid config")

// Duration is a time.Duration that reads and writes as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"15s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds server parameters. The file form is JSON with comments and
// trailing commas allowed.
type Config struct {
	Addr          string   `json:"addr"`
	ConnTimeout   Duration `json:"conn_timeout,omitempty"`
	StatsInterval Duration `json:"stats_interval,omitempty"`
	MaxEntries    int      `json:"max_entries,omitempty"`
	LogLevel      string   `json:"log_level,omitempty"`
}

const (
	defaultAddr          = ":5555"
	defaultConnTimeout   = 15 * time.Second
	defaultStatsInterval = 10 * time.Second
)

func DefaultConfig() Config {
	return Config{
		Addr:          defaultAddr,
		ConnTimeout:   Duration(defaultConnTimeout),
		StatsInterval: Duration(defaultStatsInterval),
		LogLevel:      "info",
	}
}

// Merge applies non-zero values from source into c. Zero means unset, so
// it suits flag overrides; LoadConfig does not go through it.
func (c *Config) Merge(source *Config) {
	if source.Addr != "" {
		c.Addr = source.Addr
	}
	if source.ConnTimeout != 0 {
		c.ConnTimeout = source.ConnTimeout
	}
	if source.StatsInterval != 0 {
		c.StatsInterval = source.StatsInterval
	}
	if source.MaxEntries != 0 {
		c.MaxEntries = source.MaxEntries
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// Validate checks c for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr is empty", ErrConfigInvalid)
	}
	if c.ConnTimeout < 0 {
		return fmt.Errorf("%w: conn_timeout is negative", ErrConfigInvalid)
	}
	if c.StatsInterval < 0 {
		return fmt.Errorf("%w: stats_interval is negative", ErrConfigInvalid)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("%w: max_entries is negative", ErrConfigInvalid)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return nil
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// LoadConfig reads a config file over the defaults and validates the
// result. Keys present in the file win even when zero, so "conn_timeout":
// "0s" disables the idle timeout; absent keys keep their defaults.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := decodeConfig(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfig decodes a JSONC document without applying defaults.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := decodeConfig(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeConfig overwrites only the fields whose keys appear in data.
func decodeConfig(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w: invalid JSONC: %w", ErrConfigInvalid, err)
	}

	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("%w: invalid JSON: %w", ErrConfigInvalid, err)
	}
	return nil
}
