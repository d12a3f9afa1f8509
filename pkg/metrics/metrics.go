// Package metrics holds the Prometheus collectors for handoff runs.
//
// All Record methods are safe on a nil *Metrics, so components can take an
// optional *Metrics without guarding every call site.
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Handoff results used as label values.
const (
	ResultSignaled  = "signaled"
	ResultTimeout   = "timeout"
	ResultCancelled = "cancelled"
	ResultError     = "error"
)

// Metrics holds all Prometheus metrics for the handoff.
type Metrics struct {
	contextsTotal   *prometheus.CounterVec
	sessionsTotal   *prometheus.CounterVec
	loadFailures    *prometheus.CounterVec
	handoffsTotal   *prometheus.CounterVec
	handoffWait     prometheus.Histogram
	entropyFills    *prometheus.CounterVec
	sessionsLeaked  prometheus.Counter
	mutationOverlap prometheus.Counter

	registry *prometheus.Registry
}

// New creates a metrics instance on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		contextsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_contexts_total",
				Help: "TLS context lifecycle operations by operation and status",
			},
			[]string{"op", "status"},
		),

		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_sessions_total",
				Help: "TLS session lifecycle operations by operation, status and task",
			},
			[]string{"op", "status", "task"},
		),

		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_load_failures_total",
				Help: "Certificate material load failures by step",
			},
			[]string{"step"},
		),

		handoffsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_runs_total",
				Help: "Completed handoff runs by result",
			},
			[]string{"result"},
		),

		handoffWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "handoff_wait_seconds",
				Help:    "Time the owning task waited for the handoff signal",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		entropyFills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "handoff_entropy_fills_total",
				Help: "Entropy fill requests by result",
			},
			[]string{"result"},
		),

		sessionsLeaked: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "handoff_sessions_leaked_total",
				Help: "Abandoned handoff runs that left a session alive",
			},
		),

		mutationOverlap: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "handoff_mutation_overlap_total",
				Help: "Owner mutations rejected because another mutation was in progress",
			},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.contextsTotal,
		m.sessionsTotal,
		m.loadFailures,
		m.handoffsTotal,
		m.handoffWait,
		m.entropyFills,
		m.sessionsLeaked,
		m.mutationOverlap,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handoffs returns the run counter for one result.
func (m *Metrics) Handoffs(result string) prometheus.Counter {
	return m.handoffsTotal.WithLabelValues(result)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordContext records a context create or destroy.
func (m *Metrics) RecordContext(op string, err error) {
	if m == nil {
		return
	}
	m.contextsTotal.WithLabelValues(op, status(err)).Inc()
}

// RecordSession records a session create or destroy on a task.
func (m *Metrics) RecordSession(op, task string, err error) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(op, status(err), task).Inc()
}

// RecordLoadFailure records a failed load step.
func (m *Metrics) RecordLoadFailure(step string) {
	if m == nil {
		return
	}
	m.loadFailures.WithLabelValues(step).Inc()
}

// RecordHandoff records the result of a run and how long the owner waited.
func (m *Metrics) RecordHandoff(result string, waited time.Duration) {
	if m == nil {
		return
	}
	m.handoffsTotal.WithLabelValues(result).Inc()
	m.handoffWait.Observe(waited.Seconds())
}

// RecordSessionLeaked records an abandoned run that left a session alive.
func (m *Metrics) RecordSessionLeaked() {
	if m == nil {
		return
	}
	m.sessionsLeaked.Inc()
}

// SessionsLeaked returns the leaked-session counter.
func (m *Metrics) SessionsLeaked() prometheus.Counter {
	return m.sessionsLeaked
}

// RecordEntropyFill records one entropy fill result. It matches the
// entropy.WithObserver callback signature.
func (m *Metrics) RecordEntropyFill(err error) {
	if m == nil {
		return
	}
	m.entropyFills.WithLabelValues(status(err)).Inc()
}

// RecordMutationOverlap records a rejected overlapping owner mutation.
func (m *Metrics) RecordMutationOverlap() {
	if m == nil {
		return
	}
	m.mutationOverlap.Inc()
}

// WriteSummary prints every non-zero sample, one per line, sorted by name.
func (m *Metrics) WriteSummary(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			value, ok := sampleValue(mf.GetType(), metric)
			if !ok || value == 0 {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), formatLabels(metric.GetLabel()), value))
		}
	}
	sort.Strings(lines)
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func sampleValue(t dto.MetricType, metric *dto.Metric) (float64, bool) {
	switch t {
	case dto.MetricType_COUNTER:
		return metric.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		return metric.GetGauge().GetValue(), true
	case dto.MetricType_HISTOGRAM:
		return float64(metric.GetHistogram().GetSampleCount()), true
	default:
		return 0, false
	}
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
