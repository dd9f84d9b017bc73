// Package config provides configuration loading for simulation binaries.
// Precedence, lowest to highest: built-in defaults, an optional YAML file,
// ERGO_* environment variables, command-line flags (applied by the startup
// layer).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Sink names accepted in ExportConfig.Sinks.
const (
	SinkConsole = "console"
	SinkJSONL   = "jsonl"
	SinkSQLite  = "sqlite"
	SinkHTTP    = "http"
)

// Duration wraps time.Duration so YAML files can say "5m" or "300s".
type Duration time.Duration

// UnmarshalYAML parses either a Go duration string or a plain number of
// seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config contains all settings of a simulation binary.
type Config struct {
	// Simulation contains settings of the run itself.
	Simulation SimulationConfig `yaml:"simulation"`

	// Export configures the flush cadence and the data sinks.
	Export ExportConfig `yaml:"export"`

	// Logging configures the operational log.
	Logging LoggingConfig `yaml:"logging"`
}

// SimulationConfig configures the run.
type SimulationConfig struct {
	// Seed is the master seed for all randomness. Zero draws a random
	// seed at startup; any other value makes the run reproducible.
	Seed uint64 `yaml:"seed"`
}

// ExportConfig configures where and how often accumulated measurements are
// flushed.
type ExportConfig struct {
	// Sinks lists the destinations for exported snapshots. Multiple
	// sinks receive every snapshot. Valid entries: console, jsonl,
	// sqlite, http.
	Sinks []string `yaml:"sinks"`

	// FlushInterval is the base interval between exports. Zero selects
	// the mode default: 2s in development, 5m in production.
	FlushInterval Duration `yaml:"flush_interval"`

	// FlushJitter randomizes each flush cycle within this fraction of
	// the interval. Allowed range is [0, 1).
	FlushJitter float64 `yaml:"flush_jitter"`

	// MaxFailuresInRow aborts the simulation after this many consecutive
	// export failures. Zero means failures are tolerated indefinitely.
	MaxFailuresInRow int `yaml:"max_failures_in_row"`

	// JSONLPath is the results file of the jsonl sink.
	JSONLPath string `yaml:"jsonl_path"`

	// SQLitePath is the results database of the sqlite sink.
	SQLitePath string `yaml:"sqlite_path"`

	// CollectorURL is the endpoint of the http sink. Required when the
	// http sink is selected.
	CollectorURL string `yaml:"collector_url"`

	// CollectorTimeout bounds one export call of the http sink.
	CollectorTimeout Duration `yaml:"collector_timeout"`
}

// LoggingConfig configures the operational log.
type LoggingConfig struct {
	// Level sets verbosity: "info" (default) or "debug".
	Level string `yaml:"level"`

	// Format selects the handler: "text" (default), "pretty", or "json".
	Format string `yaml:"format"`
}

// Default returns a Config with development-mode defaults.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Sinks:            []string{SinkConsole},
			FlushJitter:      0.5,
			JSONLPath:        "results.jsonl",
			SQLitePath:       "results.db",
			CollectorTimeout: Duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load resolves configuration from an optional file path and the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile loads configuration from a specific YAML file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable. Validation failures are
// deployment mistakes and fatal at startup.
func (c *Config) Validate() error {
	if c.Export.FlushJitter < 0 || c.Export.FlushJitter >= 1 {
		return fmt.Errorf("flush_jitter must lie within [0, 1), got %v", c.Export.FlushJitter)
	}
	if c.Export.MaxFailuresInRow < 0 {
		return fmt.Errorf("max_failures_in_row must be non-negative, got %d", c.Export.MaxFailuresInRow)
	}
	if len(c.Export.Sinks) == 0 {
		return fmt.Errorf("at least one export sink is required")
	}
	for _, sink := range c.Export.Sinks {
		switch sink {
		case SinkConsole, SinkJSONL, SinkSQLite:
		case SinkHTTP:
			if c.Export.CollectorURL == "" {
				return fmt.Errorf("collector_url is required for the http sink")
			}
		default:
			return fmt.Errorf("unknown export sink %q (valid: console, jsonl, sqlite, http)", sink)
		}
	}

	switch c.Logging.Level {
	case "", "info", "debug":
	default:
		return fmt.Errorf("invalid log level %q (valid: info, debug)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "pretty", "json":
	default:
		return fmt.Errorf("invalid log format %q (valid: text, pretty, json)", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides applies ERGO_* environment variables on top of cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ERGO_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("ERGO_SINKS"); v != "" {
		cfg.Export.Sinks = splitSinks(v)
	}
	if v := os.Getenv("ERGO_FLUSH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Export.FlushInterval = Duration(d)
		}
	}
	if v := os.Getenv("ERGO_FLUSH_JITTER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Export.FlushJitter = f
		}
	}
	if v := os.Getenv("ERGO_MAX_FAILURES_IN_ROW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.MaxFailuresInRow = n
		}
	}
	if v := os.Getenv("ERGO_JSONL_PATH"); v != "" {
		cfg.Export.JSONLPath = v
	}
	if v := os.Getenv("ERGO_SQLITE_PATH"); v != "" {
		cfg.Export.SQLitePath = v
	}
	if v := os.Getenv("ERGO_COLLECTOR_URL"); v != "" {
		cfg.Export.CollectorURL = v
	}
	if v := os.Getenv("ERGO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ERGO_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// splitSinks parses a comma-separated sink list.
func splitSinks(s string) []string {
	parts := strings.Split(s, ",")
	sinks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sinks = append(sinks, p)
		}
	}
	return sinks
}
