package trace

import "time"

// Emitter stamps events with a run ID and timestamp before handing them to a
// Logger. A nil *Emitter discards everything, so components can hold one
// unconditionally.
type Emitter struct {
	logger Logger
	runID  string
	now    func() time.Time
}

// NewEmitter creates an Emitter for one run.
func NewEmitter(l Logger, runID string) *Emitter {
	return &Emitter{
		logger: OrNoop(l),
		runID:  runID,
		now:    time.Now,
	}
}

// RunID returns the run identifier stamped on every event.
func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

func (e *Emitter) emit(task string, ev Event) {
	if e == nil {
		return
	}
	ev.Timestamp = e.now()
	ev.RunID = e.runID
	ev.Task = task
	e.logger.Log(ev)
}

// Lifecycle records a resource transition.
func (e *Emitter) Lifecycle(task string, res Resource, handle, oldState, newState, reason string) {
	e.emit(task, Event{
		Category: CategoryLifecycle,
		Lifecycle: &LifecycleEvent{
			Resource: res,
			Handle:   handle,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Load records a certificate material load step.
func (e *Emitter) Load(task, step, path string, code int, ok bool) {
	e.emit(task, Event{
		Category: CategoryLoad,
		Load: &LoadEvent{
			Step: step,
			Path: path,
			Code: code,
			OK:   ok,
		},
	})
}

// Signal records handoff notification activity.
func (e *Emitter) Signal(task string, kind SignalKind, value uint32, timeout time.Duration) {
	e.emit(task, Event{
		Category: CategorySignal,
		Signal: &SignalEvent{
			Kind:    kind,
			Value:   value,
			Timeout: timeout,
		},
	})
}

// Error records a reported condition. code may be nil.
func (e *Emitter) Error(task, message string, code *int, context string) {
	e.emit(task, Event{
		Category: CategoryError,
		Error: &ErrorEventData{
			Message: message,
			Code:    code,
			Context: context,
		},
	})
}
