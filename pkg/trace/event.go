package trace

import "time"

// Event is a single trace record. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// RunID identifies one handoff run (UUID).
	RunID string `cbor:"2,keyasint,omitempty"`

	// Task is the name of the task that emitted the event.
	Task string `cbor:"3,keyasint,omitempty"`

	// Category classifies the payload.
	Category Category `cbor:"4,keyasint"`

	// Type-specific payload (one of these will be set).
	Lifecycle *LifecycleEvent `cbor:"5,keyasint,omitempty"`
	Load      *LoadEvent      `cbor:"6,keyasint,omitempty"`
	Signal    *SignalEvent    `cbor:"7,keyasint,omitempty"`
	Error     *ErrorEventData `cbor:"8,keyasint,omitempty"`
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryLifecycle indicates a resource state change.
	CategoryLifecycle Category = 0
	// CategoryLoad indicates a certificate material load step.
	CategoryLoad Category = 1
	// CategorySignal indicates handoff notification activity.
	CategorySignal Category = 2
	// CategoryError indicates a reported condition.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLifecycle:
		return "LIFECYCLE"
	case CategoryLoad:
		return "LOAD"
	case CategorySignal:
		return "SIGNAL"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Resource identifies what changed state.
type Resource uint8

const (
	// ResourceContext is a TLS context.
	ResourceContext Resource = 0
	// ResourceSession is a TLS session.
	ResourceSession Resource = 1
	// ResourceTask is a spawned task.
	ResourceTask Resource = 2
	// ResourceStorage is the mounted content volume.
	ResourceStorage Resource = 3
)

// String returns the resource name.
func (r Resource) String() string {
	switch r {
	case ResourceContext:
		return "CONTEXT"
	case ResourceSession:
		return "SESSION"
	case ResourceTask:
		return "TASK"
	case ResourceStorage:
		return "STORAGE"
	default:
		return "UNKNOWN"
	}
}

// Lifecycle states used in LifecycleEvent.
const (
	StateAbsent  = "ABSENT"
	StatePresent = "PRESENT"
	StateRunning = "RUNNING"
	StateParked  = "PARKED"
	StateMounted = "MOUNTED"
)

// LifecycleEvent captures a resource transition.
type LifecycleEvent struct {
	// Resource that changed.
	Resource Resource `cbor:"1,keyasint"`

	// Handle identifies the resource instance (context/session ID, task name).
	Handle string `cbor:"2,keyasint,omitempty"`

	// OldState is the previous state.
	OldState string `cbor:"3,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"4,keyasint"`

	// Reason for the change, if any.
	Reason string `cbor:"5,keyasint,omitempty"`
}

// LoadEvent captures one certificate material load step.
type LoadEvent struct {
	// Step names the load step (trust-anchors, certificate, private-key).
	Step string `cbor:"1,keyasint"`

	// Path is the file that was loaded.
	Path string `cbor:"2,keyasint"`

	// Code is the numeric result reported by the TLS library.
	Code int `cbor:"3,keyasint"`

	// OK is true when the step succeeded.
	OK bool `cbor:"4,keyasint,omitempty"`
}

// SignalKind is the kind of handoff notification activity.
type SignalKind uint8

const (
	// SignalRaised indicates the worker raised the notification.
	SignalRaised SignalKind = 0
	// SignalWaiting indicates the owner started waiting.
	SignalWaiting SignalKind = 1
	// SignalReceived indicates the owner observed the notification.
	SignalReceived SignalKind = 2
	// SignalTimeout indicates the wait expired.
	SignalTimeout SignalKind = 3
)

// String returns the signal kind name.
func (k SignalKind) String() string {
	switch k {
	case SignalRaised:
		return "RAISED"
	case SignalWaiting:
		return "WAITING"
	case SignalReceived:
		return "RECEIVED"
	case SignalTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// SignalEvent captures handoff notification activity.
type SignalEvent struct {
	Kind SignalKind `cbor:"1,keyasint"`

	// Value carried by the notification.
	Value uint32 `cbor:"2,keyasint,omitempty"`

	// Timeout is the bounded wait, stored as nanoseconds.
	Timeout time.Duration `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures a reported condition.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Code is the numeric code, if applicable.
	Code *int `cbor:"2,keyasint,omitempty"`

	// Context describes the operation being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
