package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/internal/testpki"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// runWith runs the demo once against a generated config and returns its
// exit code and the trace it wrote.
func runWith(t *testing.T, base, handoffYAML string) (int, []trace.Event) {
	t.Helper()
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "run"+trace.FileExtension)
	cfgPath := filepath.Join(dir, "handoff.yaml")
	yaml := fmt.Sprintf("storage:\n  base_path: %s\nhandoff:\n%slogging:\n  level: error\n  trace_file: %s\n",
		base, handoffYAML, tracePath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	saved := flags
	t.Cleanup(func() { flags = saved })
	flags = Flags{ConfigFile: cfgPath}

	code := run()
	events, err := trace.ReadAll(tracePath, trace.Filter{})
	require.NoError(t, err, "trace file must be complete once run returns")
	return code, events
}

func hasError(events []trace.Event, context string) bool {
	for _, ev := range events {
		if ev.Category == trace.CategoryError && ev.Error != nil && ev.Error.Context == context {
			return true
		}
	}
	return false
}

func TestRunSucceeds(t *testing.T) {
	base := filepath.Join(t.TempDir(), "content")
	testpki.ProvisionIn(t, base)

	code, events := runWith(t, base, "  teardown_on_success: true\n")
	assert.Equal(t, 0, code)
	assert.NotEmpty(t, events)
	assert.False(t, hasError(events, "await handoff"))
}

func TestRunMountFailureClosesTrace(t *testing.T) {
	code, events := runWith(t, filepath.Join(t.TempDir(), "missing"), "  timeout: 100ms\n")
	assert.Equal(t, 1, code)
	assert.True(t, hasError(events, "mount"))
}

func TestRunTimeoutReleasesWorker(t *testing.T) {
	base := filepath.Join(t.TempDir(), "content")
	testpki.ProvisionIn(t, base)

	code, events := runWith(t, base, "  timeout: 20ms\n  signal_delay: 200ms\n")
	assert.Equal(t, 1, code)
	assert.True(t, hasError(events, "await handoff"))
}
