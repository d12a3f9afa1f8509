// Package commands implements the handoff-trace CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// ViewOptions selects which events the view command prints.
type ViewOptions struct {
	RunID    string
	Task     string
	Category string
	Resource string
}

// Filter converts the options to a trace filter.
func (o ViewOptions) Filter() (trace.Filter, error) {
	f := trace.Filter{RunID: o.RunID, Task: o.Task}
	if o.Category != "" {
		c, err := ParseCategoryFlag(o.Category)
		if err != nil {
			return trace.Filter{}, err
		}
		f.Category = &c
	}
	if o.Resource != "" {
		r, err := ParseResourceFlag(o.Resource)
		if err != nil {
			return trace.Filter{}, err
		}
		f.Resource = &r
	}
	return f, nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event trace.Event) {
	// Header line: timestamp [run:id] task CATEGORY Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Lifecycle != nil:
		typeLabel = event.Lifecycle.Resource.String()
	case event.Load != nil:
		typeLabel = event.Load.Step
	case event.Signal != nil:
		typeLabel = event.Signal.Kind.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	task := event.Task
	if task == "" {
		task = "-"
	}
	fmt.Fprintf(w, "%s [run:%s] %-8s %s %s\n", ts, shortenRunID(event.RunID), task, event.Category, typeLabel)

	switch {
	case event.Lifecycle != nil:
		formatLifecycleDetails(w, event.Lifecycle)
	case event.Load != nil:
		formatLoadDetails(w, event.Load)
	case event.Signal != nil:
		formatSignalDetails(w, event.Signal)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatLifecycleDetails(w io.Writer, lc *trace.LifecycleEvent) {
	if lc.Handle != "" {
		fmt.Fprintf(w, "  Handle: %s\n", shortenRunID(lc.Handle))
	}
	if lc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", lc.OldState, lc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", lc.NewState)
	}
	if lc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", lc.Reason)
	}
}

func formatLoadDetails(w io.Writer, ld *trace.LoadEvent) {
	result := "ok"
	if !ld.OK {
		result = "FAILED"
	}
	fmt.Fprintf(w, "  Path: %s\n", ld.Path)
	fmt.Fprintf(w, "  Result: %s (code %d)\n", result, ld.Code)
}

func formatSignalDetails(w io.Writer, sig *trace.SignalEvent) {
	if sig.Value != 0 {
		fmt.Fprintf(w, "  Value: %d\n", sig.Value)
	}
	if sig.Timeout != 0 {
		fmt.Fprintf(w, "  Timeout: %s\n", formatDuration(sig.Timeout))
	}
}

func formatErrorDetails(w io.Writer, err *trace.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (trace.Category, error) {
	switch strings.ToLower(s) {
	case "lifecycle":
		return trace.CategoryLifecycle, nil
	case "load":
		return trace.CategoryLoad, nil
	case "signal":
		return trace.CategorySignal, nil
	case "error":
		return trace.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be lifecycle, load, signal, or error)", s)
	}
}

// ParseResourceFlag parses a resource string (case-insensitive).
func ParseResourceFlag(s string) (trace.Resource, error) {
	switch strings.ToLower(s) {
	case "context":
		return trace.ResourceContext, nil
	case "session":
		return trace.ResourceSession, nil
	case "task":
		return trace.ResourceTask, nil
	case "storage":
		return trace.ResourceStorage, nil
	default:
		return 0, fmt.Errorf("invalid resource: %s (must be context, session, task, or storage)", s)
	}
}

// RunView prints the events of path that match opts.
func RunView(path string, opts ViewOptions, output io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	reader, err := trace.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
