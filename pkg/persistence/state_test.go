package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/handoff"
	"github.com/tlshandoff/handoff-go/pkg/owner"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

func TestHistoryStore(t *testing.T) {
	t.Run("LoadNonExistent", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "nonexistent.json"))

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got != nil {
			t.Errorf("Load() = %+v, want nil", got)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "nested", "state.json"))

		in := &RunHistory{Runs: []RunRecord{{RunID: "r1", Signaled: true, Waited: 20 * time.Millisecond}}}
		if err := store.Save(in); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Version != StateVersion {
			t.Errorf("Version = %d, want %d", got.Version, StateVersion)
		}
		if got.SavedAt.IsZero() {
			t.Error("SavedAt not set")
		}
		if len(got.Runs) != 1 || got.Runs[0].RunID != "r1" || got.Runs[0].Waited != 20*time.Millisecond {
			t.Errorf("Runs = %+v", got.Runs)
		}
		if _, err := os.Stat(store.Path() + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("temporary file left behind: %v", err)
		}
	})

	t.Run("AppendBounded", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "state.json"))

		for i := 0; i < MaxRuns+5; i++ {
			if _, err := store.Append(RunRecord{RunID: fmt.Sprintf("r%d", i)}); err != nil {
				t.Fatalf("Append(%d) error = %v", i, err)
			}
		}

		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(got.Runs) != MaxRuns {
			t.Fatalf("len(Runs) = %d, want %d", len(got.Runs), MaxRuns)
		}
		if got.Runs[0].RunID != "r5" {
			t.Errorf("oldest run = %s, want r5", got.Runs[0].RunID)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		store := NewHistoryStore(filepath.Join(t.TempDir(), "state.json"))
		if _, err := store.Append(RunRecord{RunID: "r"}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("Clear() error = %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("second Clear() error = %v", err)
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := NewHistoryStore(path).Load(); err == nil {
			t.Error("expected error for corrupt file")
		}
	})
}

func TestRecordFromResult(t *testing.T) {
	res := &handoff.Result{
		RunID:         "run-1",
		Waited:        100 * time.Millisecond,
		SessionLeaked: true,
		Report: owner.LoadReport{Steps: []owner.StepResult{
			{Step: owner.StepTrustAnchors, Code: tlslib.CodeSuccess},
			{Step: owner.StepPrivateKey, Code: tlslib.CodeBadFile, Err: &owner.LoadError{Step: owner.StepPrivateKey, Code: tlslib.CodeBadFile}},
		}},
	}
	rec := RecordFromResult(res, handoff.ErrHandoffTimeout)

	if rec.RunID != "run-1" || !rec.SessionLeaked || rec.Signaled {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.LoadFailures) != 1 || rec.LoadFailures[0] != "private-key" {
		t.Errorf("LoadFailures = %v", rec.LoadFailures)
	}
	if rec.Error != handoff.ErrHandoffTimeout.Error() {
		t.Errorf("Error = %q", rec.Error)
	}

	h := &RunHistory{Runs: []RunRecord{rec, RecordFromResult(nil, errors.New("boom"))}}
	if got := h.Leaked(); len(got) != 1 || got[0].RunID != "run-1" {
		t.Errorf("Leaked() = %+v", got)
	}
}
