// ABOUTME: Configuration loading and parsing for the zmart orchestrator
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete orchestrator configuration.
type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Agents    AgentsConfig    `yaml:"agents"`
	Retention RetentionConfig `yaml:"retention"`
	Conflict  ConflictConfig  `yaml:"conflict"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SchedulerConfig holds dispatch loop configuration.
type SchedulerConfig struct {
	Tick          time.Duration `yaml:"-"`
	MaxConcurrent int           `yaml:"max_concurrent"`

	// Raw string value for YAML unmarshaling
	TickRaw string `yaml:"tick"`
}

// AgentsConfig holds agent liveness timing configuration.
type AgentsConfig struct {
	HeartbeatInterval time.Duration `yaml:"-"`
	HeartbeatTimeout  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	HeartbeatIntervalRaw string `yaml:"heartbeat_interval"`
	HeartbeatTimeoutRaw  string `yaml:"heartbeat_timeout"`
}

// RetentionConfig holds completed-task retention configuration.
type RetentionConfig struct {
	TTL           time.Duration `yaml:"-"`
	SweepInterval time.Duration `yaml:"-"`
	MaxArchive    int           `yaml:"max_archive"`

	// Raw string values for YAML unmarshaling
	TTLRaw           string `yaml:"ttl"`
	SweepIntervalRaw string `yaml:"sweep_interval"`
}

// ConflictConfig lists the task kinds treated as mutating.
type ConflictConfig struct {
	MutatingKinds []string `yaml:"mutating_kinds"`
}

// JournalConfig holds the lifecycle journal configuration.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig holds the metrics/health HTTP endpoint configuration.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	HTTPAddr string `yaml:"http_addr"`
	Path     string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with working values so the orchestrator
// is embeddable without a config file.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Tick:          time.Second,
			MaxConcurrent: 10,
		},
		Agents: AgentsConfig{
			HeartbeatInterval: 30 * time.Second,
			HeartbeatTimeout:  90 * time.Second,
		},
		Retention: RetentionConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
			MaxArchive:    100_000,
		},
		Conflict: ConflictConfig{
			MutatingKinds: []string{"trade", "order.place", "order.cancel", "position.modify"},
		},
		Journal: JournalConfig{
			Path: ":memory:",
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			HTTPAddr: "localhost:9464",
			Path:     "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values. Fields left unset
// fall back to Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Scheduler.MaxConcurrent <= 0 {
		return fmt.Errorf("scheduler.max_concurrent must be positive")
	}
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be positive")
	}
	if c.Agents.HeartbeatTimeout <= 0 {
		return fmt.Errorf("agents.heartbeat_timeout must be positive")
	}
	if c.Agents.HeartbeatTimeout < c.Agents.HeartbeatInterval {
		return fmt.Errorf("agents.heartbeat_timeout must not be shorter than agents.heartbeat_interval")
	}
	if c.Retention.TTL <= 0 {
		return fmt.Errorf("retention.ttl must be positive")
	}
	if c.Retention.MaxArchive <= 0 {
		return fmt.Errorf("retention.max_archive must be positive")
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	if c.Metrics.Enabled && c.Metrics.HTTPAddr == "" {
		return fmt.Errorf("metrics.http_addr is required when metrics are enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		raw  string
		name string
		dst  *time.Duration
	}{
		{cfg.Scheduler.TickRaw, "scheduler.tick", &cfg.Scheduler.Tick},
		{cfg.Agents.HeartbeatIntervalRaw, "agents.heartbeat_interval", &cfg.Agents.HeartbeatInterval},
		{cfg.Agents.HeartbeatTimeoutRaw, "agents.heartbeat_timeout", &cfg.Agents.HeartbeatTimeout},
		{cfg.Retention.TTLRaw, "retention.ttl", &cfg.Retention.TTL},
		{cfg.Retention.SweepIntervalRaw, "retention.sweep_interval", &cfg.Retention.SweepInterval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
