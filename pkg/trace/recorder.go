package trace

import "sync"

// Recorder keeps events in memory, in arrival order.
// It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Log appends the event.
func (r *Recorder) Log(event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Select returns the recorded events matching f.
func (r *Recorder) Select(f Filter) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if f.matches(ev) {
			out = append(out, ev)
		}
	}
	return out
}

// Transitions returns the lifecycle events for one resource kind, in order.
func (r *Recorder) Transitions(res Resource) []LifecycleEvent {
	var out []LifecycleEvent
	for _, ev := range r.Events() {
		if ev.Lifecycle != nil && ev.Lifecycle.Resource == res {
			out = append(out, *ev.Lifecycle)
		}
	}
	return out
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Compile-time interface satisfaction check.
var _ Logger = (*Recorder)(nil)
