package trace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for selecting events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// RunID filters by exact run ID.
	RunID string

	// Task filters by task name.
	Task string

	// Category filters by event category.
	Category *Category

	// Resource filters lifecycle events by resource. Non-lifecycle events
	// never match when set.
	Resource *Resource

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

func (f *Filter) matches(event Event) bool {
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}
	if f.Task != "" && event.Task != f.Task {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Resource != nil && (event.Lifecycle == nil || event.Lifecycle.Resource != *f.Resource) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// ErrTruncated is returned when a trace file ends inside an event, as it
// does when the writer was killed mid-write.
var ErrTruncated = errors.New("trace: truncated event")

// Reader streams events from a trace file.
type Reader struct {
	f       *os.File
	dec     *cbor.Decoder
	header  Header
	empty   bool
	filter  Filter
	decoded int
}

// NewReader opens path and yields every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and yields only events matching filter. It
// fails with ErrNotTrace or ErrUnsupportedVersion when the header does not
// check out. An empty file reads as a trace without events.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{f: f, dec: decMode.NewDecoder(f), filter: filter}
	r.header, err = readHeader(r.dec)
	switch {
	case errors.Is(err, io.EOF):
		r.empty = true
	case err != nil:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Header returns the file header. It is zero for an empty file.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next matching event. It returns io.EOF at a clean end of
// file and ErrTruncated when the last event is incomplete.
func (r *Reader) Next() (Event, error) {
	if r.empty {
		return Event{}, io.EOF
	}
	for {
		var event Event
		err := r.dec.Decode(&event)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return Event{}, fmt.Errorf("%w after %d events", ErrTruncated, r.decoded)
		default:
			return Event{}, fmt.Errorf("event %d: %w", r.decoded+1, err)
		}
		r.decoded++
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Decoded returns how many events were read so far, matching or not.
func (r *Reader) Decoded() int {
	return r.decoded
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

// ReadAll returns every event in path matching filter.
func ReadAll(path string, filter Filter) ([]Event, error) {
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
