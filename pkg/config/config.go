// Package config loads the handoff configuration from YAML or TOML files,
// applies HANDOFF_* environment overrides and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/entropy"
	"github.com/tlshandoff/handoff-go/pkg/handoff"
	"github.com/tlshandoff/handoff-go/pkg/storage"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

// Config is the complete runtime configuration.
type Config struct {
	Storage storage.Config `yaml:"storage" toml:"storage"`

	// Files overrides individual certificate material paths. Empty fields
	// default to the standard names under Storage.BasePath.
	Files cert.Paths `yaml:"files" toml:"files"`

	Handoff HandoffConfig `yaml:"handoff" toml:"handoff"`
	Entropy EntropyConfig `yaml:"entropy" toml:"entropy"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// HandoffConfig controls the cross-task run.
type HandoffConfig struct {
	Timeout           Duration `yaml:"timeout" toml:"timeout"`
	SignalDelay       Duration `yaml:"signal_delay" toml:"signal_delay"`
	CancelOnTimeout   bool     `yaml:"cancel_on_timeout" toml:"cancel_on_timeout"`
	TeardownOnSuccess bool     `yaml:"teardown_on_success" toml:"teardown_on_success"`
	WorkerName        string   `yaml:"worker_name" toml:"worker_name"`
	WorkerStackSize   int      `yaml:"worker_stack_size" toml:"worker_stack_size"`
	WorkerPriority    int      `yaml:"worker_priority" toml:"worker_priority"`

	// Method is the TLS method name: client or client-tls13.
	Method string `yaml:"method" toml:"method"`
}

// EntropyConfig controls how long startup waits for the entropy source.
type EntropyConfig struct {
	WaitInterval Duration `yaml:"wait_interval" toml:"wait_interval"`
	WaitProbes   uint64   `yaml:"wait_probes" toml:"wait_probes"`

	// ActivateAfter simulates a radio-backed source that becomes ready
	// some time after startup. Zero means ready immediately.
	ActivateAfter Duration `yaml:"activate_after" toml:"activate_after"`
}

// LoggingConfig controls operational logging and the lifecycle trace.
type LoggingConfig struct {
	Level     string `yaml:"level" toml:"level"`
	Format    string `yaml:"format" toml:"format"`
	TraceFile string `yaml:"trace_file" toml:"trace_file"`

	// StateFile keeps the run history across restarts. Empty disables it.
	StateFile string `yaml:"state_file" toml:"state_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	hc := handoff.DefaultConfig()
	wp := entropy.DefaultWaitPolicy()
	return &Config{
		Storage: storage.DefaultConfig(),
		Handoff: HandoffConfig{
			Timeout:         Duration(hc.Timeout),
			WorkerName:      hc.Worker.Name,
			WorkerStackSize: hc.Worker.StackSize,
			WorkerPriority:  hc.Worker.Priority,
		},
		Entropy: EntropyConfig{
			WaitInterval: Duration(wp.Interval),
			WaitProbes:   wp.MaxProbes,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path (YAML for .yaml/.yml, TOML for .toml) over the defaults,
// applies environment overrides and validates. An empty path loads only
// defaults and environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, cfg)
		case ".toml":
			_, err = toml.Decode(string(data), cfg)
		default:
			return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("HANDOFF_BASE_PATH"); val != "" {
		cfg.Storage.BasePath = val
	}
	if val := os.Getenv("HANDOFF_PARTITION_LABEL"); val != "" {
		cfg.Storage.PartitionLabel = val
	}
	if val := os.Getenv("HANDOFF_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("parse HANDOFF_TIMEOUT: %w", err)
		}
		cfg.Handoff.Timeout = Duration(d)
	}
	if val := os.Getenv("HANDOFF_SIGNAL_DELAY"); val != "" {
		d, err := time.ParseDuration(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("parse HANDOFF_SIGNAL_DELAY: %w", err)
		}
		cfg.Handoff.SignalDelay = Duration(d)
	}
	if val := os.Getenv("HANDOFF_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("HANDOFF_TRACE_FILE"); val != "" {
		cfg.Logging.TraceFile = val
	}
	if val := os.Getenv("HANDOFF_STATE_FILE"); val != "" {
		cfg.Logging.StateFile = val
	}
	return nil
}

// Validate checks the configuration and normalizes the logging fields.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Storage.BasePath) == "" {
		return fmt.Errorf("storage.base_path is required")
	}
	if _, err := tlslib.ParseMethod(c.Handoff.Method); err != nil {
		return fmt.Errorf("handoff.method: %w", err)
	}
	if err := c.HandoffConfig().Validate(); err != nil {
		return err
	}
	if c.Entropy.WaitInterval < 0 || c.Entropy.ActivateAfter < 0 {
		return fmt.Errorf("entropy durations must not be negative")
	}
	return c.Logging.Validate()
}

// Validate normalizes the level and format.
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}
	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}

	format := strings.TrimSpace(strings.ToLower(c.Format))
	switch format {
	case "", "text":
		c.Format = "text"
	case "json":
		c.Format = "json"
	default:
		return fmt.Errorf("invalid log format %q, supported formats: text, json", c.Format)
	}
	return nil
}

// Paths resolves the certificate material locations.
func (c *Config) Paths() cert.Paths {
	p := cert.DefaultPaths(c.Storage.BasePath)
	if c.Files.TrustAnchors != "" {
		p.TrustAnchors = c.Files.TrustAnchors
	}
	if c.Files.ClientCert != "" {
		p.ClientCert = c.Files.ClientCert
	}
	if c.Files.ClientKey != "" {
		p.ClientKey = c.Files.ClientKey
	}
	return p
}

// Method returns the configured TLS method. Validate rejects unknown names.
func (c *Config) Method() tlslib.Method {
	m, _ := tlslib.ParseMethod(c.Handoff.Method)
	return m
}

// HandoffConfig converts to the coordinator configuration.
func (c *Config) HandoffConfig() handoff.Config {
	return handoff.Config{
		Method:            c.Method(),
		Timeout:           time.Duration(c.Handoff.Timeout),
		SignalDelay:       time.Duration(c.Handoff.SignalDelay),
		CancelOnTimeout:   c.Handoff.CancelOnTimeout,
		TeardownOnSuccess: c.Handoff.TeardownOnSuccess,
		Worker: task.Spec{
			Name:      c.Handoff.WorkerName,
			StackSize: c.Handoff.WorkerStackSize,
			Priority:  c.Handoff.WorkerPriority,
		},
	}
}

// WaitPolicy converts to the entropy readiness policy.
func (c *Config) WaitPolicy() entropy.WaitPolicy {
	return entropy.WaitPolicy{
		Interval:  time.Duration(c.Entropy.WaitInterval),
		MaxProbes: c.Entropy.WaitProbes,
	}
}
