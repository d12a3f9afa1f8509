package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/handoff"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// MaxRuns bounds how many runs the history keeps; older runs are dropped.
const MaxRuns = 32

// RunHistory is the content of the state file.
type RunHistory struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Runs are the most recent runs, oldest first.
	Runs []RunRecord `json:"runs,omitempty"`
}

// Leaked returns the runs that left a session alive.
func (h *RunHistory) Leaked() []RunRecord {
	var out []RunRecord
	for _, r := range h.Runs {
		if r.SessionLeaked {
			out = append(out, r)
		}
	}
	return out
}

// RunRecord summarizes one handoff run.
type RunRecord struct {
	RunID string `json:"run_id"`

	// FinishedAt is when the owning task stopped waiting.
	FinishedAt time.Time `json:"finished_at"`

	Signaled      bool          `json:"signaled"`
	SignalValue   uint32        `json:"signal_value,omitempty"`
	Waited        time.Duration `json:"waited_ns"`
	SessionLeaked bool          `json:"session_leaked,omitempty"`

	// LoadFailures lists the failed load steps.
	LoadFailures []string `json:"load_failures,omitempty"`

	// Error is the run error, if any.
	Error string `json:"error,omitempty"`
}

// RecordFromResult builds a record from a coordinator result.
func RecordFromResult(res *handoff.Result, err error) RunRecord {
	rec := RunRecord{FinishedAt: time.Now()}
	if res != nil {
		rec.RunID = res.RunID
		rec.Signaled = res.Signaled
		rec.SignalValue = res.Value
		rec.Waited = res.Waited
		rec.SessionLeaked = res.SessionLeaked
		for _, s := range res.Report.Failed() {
			rec.LoadFailures = append(rec.LoadFailures, s.Step.String())
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// HistoryStore manages persistence of the run history to a JSON file.
type HistoryStore struct {
	mu   sync.Mutex
	path string
}

// NewHistoryStore creates a new history store.
func NewHistoryStore(path string) *HistoryStore {
	return &HistoryStore{path: path}
}

// Path returns the state file path.
func (s *HistoryStore) Path() string {
	return s.path
}

// Save persists the history to disk.
func (s *HistoryStore) Save(h *RunHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(h)
}

func (s *HistoryStore) save(h *RunHistory) error {
	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	h.Version = StateVersion
	h.SavedAt = time.Now()

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}

	// Write to a sibling file and rename so a crash never leaves a torn file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the history from disk.
// Returns nil, nil if the file doesn't exist (empty history).
func (s *HistoryStore) Load() (*RunHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *HistoryStore) load() (*RunHistory, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	h := &RunHistory{}
	if err := json.Unmarshal(data, h); err != nil {
		return nil, err
	}
	return h, nil
}

// Append adds rec to the history, dropping the oldest runs beyond MaxRuns.
func (s *HistoryStore) Append(rec RunRecord) (*RunHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.load()
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = &RunHistory{}
	}
	h.Runs = append(h.Runs, rec)
	if n := len(h.Runs); n > MaxRuns {
		h.Runs = append([]RunRecord(nil), h.Runs[n-MaxRuns:]...)
	}
	if err := s.save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Clear removes the state file.
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
