// ABOUTME: Tests for configuration loading, env var expansion, and validation
// ABOUTME: Covers YAML parsing, duration parsing, defaults, and error cases

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  tick: 500ms
  max_concurrent: 4
agents:
  heartbeat_interval: 10s
  heartbeat_timeout: 30s
retention:
  ttl: 12h
  sweep_interval: 30m
  max_archive: 5000
conflict:
  mutating_kinds:
    - trade
    - order.place
journal:
  path: /var/lib/zmart/journal.db
metrics:
  enabled: true
  http_addr: localhost:9464
  path: /metrics
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.Tick != 500*time.Millisecond {
		t.Errorf("Tick = %v, want 500ms", cfg.Scheduler.Tick)
	}
	if cfg.Scheduler.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d, want 4", cfg.Scheduler.MaxConcurrent)
	}
	if cfg.Agents.HeartbeatInterval != 10*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 10s", cfg.Agents.HeartbeatInterval)
	}
	if cfg.Agents.HeartbeatTimeout != 30*time.Second {
		t.Errorf("HeartbeatTimeout = %v, want 30s", cfg.Agents.HeartbeatTimeout)
	}
	if cfg.Retention.TTL != 12*time.Hour {
		t.Errorf("TTL = %v, want 12h", cfg.Retention.TTL)
	}
	if cfg.Retention.MaxArchive != 5000 {
		t.Errorf("MaxArchive = %d, want 5000", cfg.Retention.MaxArchive)
	}
	if len(cfg.Conflict.MutatingKinds) != 2 {
		t.Errorf("MutatingKinds = %v, want 2 entries", cfg.Conflict.MutatingKinds)
	}
	if cfg.Journal.Path != "/var/lib/zmart/journal.db" {
		t.Errorf("Journal.Path = %q", cfg.Journal.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_DefaultsApplyForUnsetFields(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  max_concurrent: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	def := Default()
	if cfg.Scheduler.MaxConcurrent != 2 {
		t.Errorf("MaxConcurrent = %d, want override 2", cfg.Scheduler.MaxConcurrent)
	}
	if cfg.Scheduler.Tick != def.Scheduler.Tick {
		t.Errorf("Tick = %v, want default %v", cfg.Scheduler.Tick, def.Scheduler.Tick)
	}
	if cfg.Agents.HeartbeatTimeout != def.Agents.HeartbeatTimeout {
		t.Errorf("HeartbeatTimeout = %v, want default %v", cfg.Agents.HeartbeatTimeout, def.Agents.HeartbeatTimeout)
	}
	if cfg.Journal.Path != def.Journal.Path {
		t.Errorf("Journal.Path = %q, want default %q", cfg.Journal.Path, def.Journal.Path)
	}
	if len(cfg.Conflict.MutatingKinds) != len(def.Conflict.MutatingKinds) {
		t.Errorf("MutatingKinds = %v, want defaults", cfg.Conflict.MutatingKinds)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("ZMART_TEST_JOURNAL", "/tmp/zmart-test.db")
	t.Setenv("ZMART_TEST_ADDR", "0.0.0.0:9999")

	path := writeConfig(t, `
journal:
  path: ${ZMART_TEST_JOURNAL}
metrics:
  enabled: true
  http_addr: ${ZMART_TEST_ADDR}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Journal.Path != "/tmp/zmart-test.db" {
		t.Errorf("Journal.Path = %q, want expanded env value", cfg.Journal.Path)
	}
	if cfg.Metrics.HTTPAddr != "0.0.0.0:9999" {
		t.Errorf("Metrics.HTTPAddr = %q, want expanded env value", cfg.Metrics.HTTPAddr)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  tick: not-a-duration
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "scheduler: [not: valid: yaml")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero max_concurrent",
			mutate:  func(c *Config) { c.Scheduler.MaxConcurrent = 0 },
			wantErr: true,
		},
		{
			name:    "negative tick",
			mutate:  func(c *Config) { c.Scheduler.Tick = -time.Second },
			wantErr: true,
		},
		{
			name:    "zero heartbeat timeout",
			mutate:  func(c *Config) { c.Agents.HeartbeatTimeout = 0 },
			wantErr: true,
		},
		{
			name: "timeout shorter than interval",
			mutate: func(c *Config) {
				c.Agents.HeartbeatInterval = time.Minute
				c.Agents.HeartbeatTimeout = time.Second
			},
			wantErr: true,
		},
		{
			name:    "zero retention ttl",
			mutate:  func(c *Config) { c.Retention.TTL = 0 },
			wantErr: true,
		},
		{
			name:    "zero max archive",
			mutate:  func(c *Config) { c.Retention.MaxArchive = 0 },
			wantErr: true,
		},
		{
			name:    "empty journal path",
			mutate:  func(c *Config) { c.Journal.Path = "" },
			wantErr: true,
		},
		{
			name: "metrics enabled without addr",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.HTTPAddr = ""
			},
			wantErr: true,
		},
		{
			name: "metrics disabled without addr is fine",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.HTTPAddr = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
