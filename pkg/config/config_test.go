package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/config"
	"github.com/tlshandoff/handoff-go/pkg/storage"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "/content", cfg.Storage.BasePath)
	assert.Equal(t, "content", cfg.Storage.PartitionLabel)
	assert.Equal(t, storage.DefaultConfig(), cfg.Storage)

	hc := cfg.HandoffConfig()
	assert.Equal(t, 100*time.Millisecond, hc.Timeout)
	assert.Equal(t, "Creator", hc.Worker.Name)
	assert.Equal(t, 4096, hc.Worker.StackSize)
	assert.Equal(t, 3, hc.Worker.Priority)
	assert.False(t, hc.CancelOnTimeout)
	assert.Equal(t, tlslib.MethodClient, hc.Method)

	assert.Equal(t, cert.DefaultPaths("/content"), cfg.Paths())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "handoff.yaml", `
storage:
  base_path: /data
  partition_label: certs
files:
  client_key: /secure/key.der
handoff:
  timeout: 250ms
  signal_delay: 20ms
  cancel_on_timeout: true
  worker_name: Builder
  worker_stack_size: 4096
  worker_priority: 5
logging:
  level: DEBUG
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data", cfg.Storage.BasePath)
	assert.Equal(t, "certs", cfg.Storage.PartitionLabel)
	hc := cfg.HandoffConfig()
	assert.Equal(t, 250*time.Millisecond, hc.Timeout)
	assert.Equal(t, 20*time.Millisecond, hc.SignalDelay)
	assert.True(t, hc.CancelOnTimeout)
	assert.Equal(t, "Builder", hc.Worker.Name)
	assert.Equal(t, 5, hc.Worker.Priority)
	assert.Equal(t, "debug", cfg.Logging.Level)

	paths := cfg.Paths()
	assert.Equal(t, "/secure/key.der", paths.ClientKey)
	assert.Equal(t, filepath.Join("/data", cert.ClientCertFile), paths.ClientCert)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "handoff.toml", `
[storage]
base_path = "/mnt/content"

[handoff]
timeout = "1s"
method = "client-tls13"

[entropy]
wait_interval = "10ms"
wait_probes = 3
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/content", cfg.Storage.BasePath)
	assert.Equal(t, "content", cfg.Storage.PartitionLabel, "unset keys keep defaults")
	assert.Equal(t, time.Second, cfg.HandoffConfig().Timeout)
	assert.Equal(t, "Creator", cfg.HandoffConfig().Worker.Name)
	assert.Equal(t, tlslib.MethodClientTLS13, cfg.HandoffConfig().Method)

	wp := cfg.WaitPolicy()
	assert.Equal(t, 10*time.Millisecond, wp.Interval)
	assert.Equal(t, uint64(3), wp.MaxProbes)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("HANDOFF_BASE_PATH", "/env")
	t.Setenv("HANDOFF_TIMEOUT", "150ms")
	t.Setenv("HANDOFF_LOG_LEVEL", "warn")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env", cfg.Storage.BasePath)
	assert.Equal(t, 150*time.Millisecond, cfg.HandoffConfig().Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)

	t.Setenv("HANDOFF_TIMEOUT", "soon")
	_, err = config.Load("")
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "handoff.ini", "x=1"},
		{"bad duration", "handoff.yaml", "handoff:\n  timeout: fast\n"},
		{"zero timeout", "handoff.yaml", "handoff:\n  timeout: 0s\n"},
		{"bad level", "handoff.yaml", "logging:\n  level: loud\n"},
		{"bad format", "handoff.yaml", "logging:\n  format: xml\n"},
		{"empty base path", "handoff.toml", "[storage]\nbase_path = \"\"\n"},
		{"unknown method", "handoff.yaml", "handoff:\n  method: dtls\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	lc := config.LoggingConfig{Level: "warn", Format: "json"}
	require.NoError(t, lc.Validate())

	logger := lc.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "task", "main")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"task":"main"`)
}
