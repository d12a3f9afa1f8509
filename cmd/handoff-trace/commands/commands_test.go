package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// writeTrace writes a small two-run trace file and returns its path.
func writeTrace(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run"+trace.FileExtension)
	fl, err := trace.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	ok := trace.NewEmitter(fl, "aaaaaaaa-1111")
	ok.Lifecycle("main", trace.ResourceContext, "ctx-1", trace.StateAbsent, trace.StatePresent, "")
	ok.Load("main", "certificate", "/content/Device.crt", 1, true)
	ok.Lifecycle("Creator", trace.ResourceSession, "sess-1", trace.StateAbsent, trace.StatePresent, "")
	ok.Signal("Creator", trace.SignalRaised, 1, 0)
	ok.Signal("main", trace.SignalReceived, 1, 0)
	ok.Lifecycle("main", trace.ResourceSession, "sess-1", trace.StatePresent, trace.StateAbsent, "destroyed")

	late := trace.NewEmitter(fl, "bbbbbbbb-2222")
	late.Load("main", "private-key", "/content/D-Priv.der", -4, false)
	late.Lifecycle("Creator", trace.ResourceSession, "sess-2", trace.StateAbsent, trace.StatePresent, "")
	late.Signal("main", trace.SignalTimeout, 0, 100*time.Millisecond)
	late.Error("main", "handoff: notification timeout after 100ms", nil, "await handoff")

	if err := fl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return path
}

func TestRunViewAll(t *testing.T) {
	path := writeTrace(t)

	var buf bytes.Buffer
	if err := RunView(path, ViewOptions{}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"[run:aaaaaaaa]",
		"[run:bbbbbbbb]",
		"ABSENT -> PRESENT",
		"Reason: destroyed",
		"Result: FAILED (code -4)",
		"Timeout: 100.000ms",
		"Context: await handoff",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := writeTrace(t)

	var buf bytes.Buffer
	if err := RunView(path, ViewOptions{Task: "Creator", Resource: "session"}, &buf); err != nil {
		t.Fatalf("RunView: %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, "LIFECYCLE SESSION"); got != 2 {
		t.Errorf("expected 2 session events, got %d:\n%s", got, out)
	}
	if strings.Contains(out, "RAISED") {
		t.Errorf("signal events should be filtered out:\n%s", out)
	}
}

func TestRunViewInvalidFlags(t *testing.T) {
	path := writeTrace(t)
	if err := RunView(path, ViewOptions{Category: "bogus"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid category")
	}
	if err := RunView(path, ViewOptions{Resource: "bogus"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid resource")
	}
	if err := RunView(filepath.Join(t.TempDir(), "missing.htrace"), ViewOptions{}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestStats(t *testing.T) {
	reader, err := trace.NewReader(writeTrace(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	stats, err := collectStats(reader)
	if err != nil {
		t.Fatalf("collectStats: %v", err)
	}

	if stats.TotalEvents != 10 {
		t.Errorf("TotalEvents = %d, want 10", stats.TotalEvents)
	}
	if stats.LoadFailures != 1 {
		t.Errorf("LoadFailures = %d, want 1", stats.LoadFailures)
	}
	if stats.Errors != 1 {
		t.Errorf("Errors = %d, want 1", stats.Errors)
	}
	if stats.EventsByTask["Creator"] != 3 {
		t.Errorf("Creator events = %d, want 3", stats.EventsByTask["Creator"])
	}

	ok := stats.Runs["aaaaaaaa-1111"]
	if ok == nil || !ok.Signaled || ok.Leaked() {
		t.Errorf("run aaaaaaaa: %+v", ok)
	}
	late := stats.Runs["bbbbbbbb-2222"]
	if late == nil || !late.TimedOut || !late.Leaked() {
		t.Errorf("run bbbbbbbb: %+v", late)
	}

	var buf bytes.Buffer
	printStats(&buf, stats)
	if !strings.Contains(buf.String(), "[bbbbbbbb] timeout, 4 events, sessions 0/1 (leaked)") {
		t.Errorf("unexpected stats output:\n%s", buf.String())
	}
}

func TestRunStatsCommandShowsFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := RunStatsCommand(writeTrace(t), &buf); err != nil {
		t.Fatalf("RunStatsCommand: %v", err)
	}
	if !strings.Contains(buf.String(), "Format: htrace v1, created ") {
		t.Errorf("missing format line:\n%s", buf.String())
	}
}

func TestExportJSONL(t *testing.T) {
	reader, err := trace.NewReader(writeTrace(t))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	n, err := exportJSONL(reader, &buf)
	if err != nil {
		t.Fatalf("exportJSONL: %v", err)
	}
	if n != 10 {
		t.Errorf("exported %d events, want 10", n)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(lines))
	}
	var ev trace.Event
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Lifecycle == nil || ev.Lifecycle.Resource != trace.ResourceContext {
		t.Errorf("first event = %+v", ev)
	}
}
