package trace

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

// mockLogger records events for testing
type mockLogger struct {
	events []Event
}

func (m *mockLogger) Log(event Event) {
	m.events = append(m.events, event)
}

func TestMultiLoggerCallsAll(t *testing.T) {
	m1, m2 := &mockLogger{}, &mockLogger{}
	multi := NewMultiLogger(m1, nil, m2)

	multi.Log(Event{RunID: "r1", Category: CategoryLoad})

	for i, m := range []*mockLogger{m1, m2} {
		if len(m.events) != 1 || m.events[0].RunID != "r1" {
			t.Errorf("logger %d: got %+v", i, m.events)
		}
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	m := &mockLogger{}
	if OrNoop(m) != Logger(m) {
		t.Error("OrNoop should pass through non-nil loggers")
	}
}

func TestEmitterStampsEvents(t *testing.T) {
	rec := NewRecorder()
	em := NewEmitter(rec, "run-42")
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	em.now = func() time.Time { return fixed }

	em.Lifecycle("main", ResourceContext, "ctx-1", StateAbsent, StatePresent, "")
	em.Load("main", "certificate", "/content/Device.crt", -4, false)
	em.Signal("Creator", SignalRaised, 1, 0)
	code := -199
	em.Error("main", "rng failure", &code, "fill")

	events := rec.Events()
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	for _, ev := range events {
		if ev.RunID != "run-42" || !ev.Timestamp.Equal(fixed) {
			t.Errorf("event not stamped: %+v", ev)
		}
	}
	if events[2].Task != "Creator" || events[2].Signal.Kind != SignalRaised {
		t.Errorf("signal event = %+v", events[2])
	}
	if *events[3].Error.Code != -199 {
		t.Errorf("error code = %d", *events[3].Error.Code)
	}
}

func TestNilEmitter(t *testing.T) {
	var em *Emitter
	// Must not panic.
	em.Lifecycle("main", ResourceSession, "", StatePresent, StateAbsent, "")
	if em.RunID() != "" {
		t.Error("nil emitter should have empty run ID")
	}
}

func TestRecorderTransitions(t *testing.T) {
	rec := NewRecorder()
	em := NewEmitter(rec, "r")
	em.Lifecycle("main", ResourceContext, "c", StateAbsent, StatePresent, "")
	em.Lifecycle("w", ResourceSession, "s", StateAbsent, StatePresent, "")
	em.Lifecycle("main", ResourceSession, "s", StatePresent, StateAbsent, "")

	if got := rec.Transitions(ResourceSession); len(got) != 2 {
		t.Fatalf("session transitions = %d, want 2", len(got))
	}
	if got := rec.Select(Filter{Task: "main"}); len(got) != 2 {
		t.Errorf("main events = %d, want 2", len(got))
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Error("Reset did not clear events")
	}
}

func TestSlogAdapterLogsLoadEvent(t *testing.T) {
	var buf bytes.Buffer
	slogger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogAdapter(slogger).Log(Event{
		RunID:    "r1",
		Task:     "main",
		Category: CategoryLoad,
		Load:     &LoadEvent{Step: "private-key", Path: "/content/D-Priv.der", Code: -4},
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["category"] != "LOAD" {
		t.Errorf("category: got %v", entry["category"])
	}
	if entry["path"] != "/content/D-Priv.der" {
		t.Errorf("path: got %v", entry["path"])
	}
	if entry["code"] != float64(-4) {
		t.Errorf("code: got %v", entry["code"])
	}
	if entry["ok"] != false {
		t.Errorf("ok: got %v", entry["ok"])
	}
}

func TestCBORRoundTripKeepsDuration(t *testing.T) {
	in := Event{
		Timestamp: time.Now().UTC(),
		Category:  CategorySignal,
		Signal:    &SignalEvent{Kind: SignalTimeout, Timeout: 100 * time.Millisecond},
	}
	data, err := EncodeEvent(in)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if out.Signal.Timeout != 100*time.Millisecond {
		t.Errorf("Timeout = %v, want 100ms", out.Signal.Timeout)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
}
