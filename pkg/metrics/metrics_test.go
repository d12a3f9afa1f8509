package metrics_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tlshandoff/handoff-go/pkg/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RecordContext("create", nil)
	m.RecordSession("create", "Creator", nil)
	m.RecordLoadFailure("certificate")
	m.RecordHandoff(metrics.ResultSignaled, time.Millisecond)
	m.RecordEntropyFill(nil)
	m.RecordMutationOverlap()
	m.RecordSessionLeaked()
	require.NoError(t, m.WriteSummary(&bytes.Buffer{}))
}

func TestRecordHandoff(t *testing.T) {
	m := metrics.New()
	m.RecordHandoff(metrics.ResultSignaled, 20*time.Millisecond)
	m.RecordHandoff(metrics.ResultTimeout, 100*time.Millisecond)

	count, err := testutil.GatherAndCount(m.Registry(), "handoff_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Handoffs(metrics.ResultTimeout)))
	assert.Zero(t, testutil.ToFloat64(m.SessionsLeaked()), "a timeout alone is not a leak")

	m.RecordSessionLeaked()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsLeaked()))
}

func TestWriteSummary(t *testing.T) {
	m := metrics.New()
	m.RecordContext("create", nil)
	m.RecordLoadFailure("certificate")
	m.RecordEntropyFill(errors.New("not ready"))

	var buf bytes.Buffer
	require.NoError(t, m.WriteSummary(&buf))

	out := buf.String()
	assert.Contains(t, out, `handoff_contexts_total{op="create",status="ok"} 1`)
	assert.Contains(t, out, `handoff_load_failures_total{step="certificate"} 1`)
	assert.Contains(t, out, `handoff_entropy_fills_total{result="error"} 1`)
	assert.NotContains(t, out, "handoff_runs_total")
}
