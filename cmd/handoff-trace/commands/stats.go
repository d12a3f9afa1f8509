package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	Header           trace.Header
	TotalEvents      int
	EventsByCategory map[trace.Category]int
	EventsByTask     map[string]int
	Runs             map[string]*RunStats
	LoadFailures     int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats holds statistics for one handoff run.
type RunStats struct {
	FirstSeen       time.Time
	LastSeen        time.Time
	Events          int
	SessionsCreated int
	SessionsFreed   int
	Signaled        bool
	TimedOut        bool
}

// Leaked reports whether the run ended with sessions still alive.
func (r *RunStats) Leaked() bool {
	return r.SessionsCreated > r.SessionsFreed
}

// RunStatsCommand analyzes the trace file and prints statistics.
func RunStatsCommand(path string, w io.Writer) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats, err := collectStats(reader)
	if err != nil {
		return err
	}
	stats.Header = reader.Header()
	printStats(w, stats)
	return nil
}

type eventSource interface {
	Next() (trace.Event, error)
}

func collectStats(src eventSource) (*Stats, error) {
	stats := &Stats{
		EventsByCategory: make(map[trace.Category]int),
		EventsByTask:     make(map[string]int),
		Runs:             make(map[string]*RunStats),
	}

	for {
		event, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		if event.Task != "" {
			stats.EventsByTask[event.Task]++
		}

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		run, ok := stats.Runs[event.RunID]
		if !ok {
			run = &RunStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			stats.Runs[event.RunID] = run
		}
		run.Events++
		if event.Timestamp.After(run.LastSeen) {
			run.LastSeen = event.Timestamp
		}

		switch {
		case event.Lifecycle != nil && event.Lifecycle.Resource == trace.ResourceSession:
			if event.Lifecycle.NewState == trace.StatePresent {
				run.SessionsCreated++
			} else if event.Lifecycle.NewState == trace.StateAbsent {
				run.SessionsFreed++
			}
		case event.Load != nil && !event.Load.OK:
			stats.LoadFailures++
		case event.Signal != nil:
			switch event.Signal.Kind {
			case trace.SignalReceived:
				run.Signaled = true
			case trace.SignalTimeout:
				run.TimedOut = true
			}
		case event.Error != nil:
			stats.Errors++
		}
	}
	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Handoff Trace Statistics ===")
	fmt.Fprintln(w)

	if h := stats.Header; h.Version > 0 {
		fmt.Fprintf(w, "Format: %s v%d, created %s\n", h.Format, h.Version, h.Created.Format(time.RFC3339))
	}
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration: %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Load Failures: %d\n", stats.LoadFailures)
	fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []trace.Category{trace.CategoryLifecycle, trace.CategoryLoad, trace.CategorySignal, trace.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", c, n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Task:")
	tasks := make([]string, 0, len(stats.EventsByTask))
	for t := range stats.EventsByTask {
		tasks = append(tasks, t)
	}
	sort.Strings(tasks)
	for _, t := range tasks {
		fmt.Fprintf(w, "  %-10s %d\n", t, stats.EventsByTask[t])
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	ids := make([]string, 0, len(stats.Runs))
	for id := range stats.Runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		run := stats.Runs[id]
		outcome := "incomplete"
		switch {
		case run.Signaled:
			outcome = "signaled"
		case run.TimedOut:
			outcome = "timeout"
		}
		label := shortenRunID(id)
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "  [%s] %s, %d events, sessions %d/%d", label, outcome, run.Events, run.SessionsFreed, run.SessionsCreated)
		if run.Leaked() {
			fmt.Fprint(w, " (leaked)")
		}
		fmt.Fprintln(w)
	}
}
