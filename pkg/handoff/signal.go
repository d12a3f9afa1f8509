package handoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// ErrHandoffTimeout is reported when the worker did not signal in time.
var ErrHandoffTimeout = errors.New("handoff: notification timeout")

// Signal values raised by the worker.
const (
	// ValueCreated means the worker created its session.
	ValueCreated uint32 = 1
	// ValueFailed means session creation failed; the worker still hands the
	// Owner back.
	ValueFailed uint32 = 2
)

// Signal is the one-shot handoff notification from worker to owner.
type Signal struct {
	n       *task.Notification
	timeout time.Duration
	trace   *trace.Emitter
}

// NewSignal creates a signal whose Await gives up after timeout.
func NewSignal(timeout time.Duration, e *trace.Emitter) *Signal {
	return &Signal{
		n:       task.NewNotification(),
		timeout: timeout,
		trace:   e,
	}
}

// Raise publishes v. Everything the raising task did before Raise is
// visible to the task whose Await returns v.
func (s *Signal) Raise(ctx context.Context, v uint32) {
	s.trace.Signal(task.Name(ctx), trace.SignalRaised, v, 0)
	s.n.Notify(v)
}

// Await blocks for the signal. It returns an error wrapping
// ErrHandoffTimeout when the bound expires, or ctx.Err() when ctx is done.
func (s *Signal) Await(ctx context.Context) (uint32, error) {
	name := task.Name(ctx)
	s.trace.Signal(name, trace.SignalWaiting, 0, s.timeout)

	v, err := s.n.Wait(ctx, s.timeout)
	switch {
	case err == nil:
		s.trace.Signal(name, trace.SignalReceived, v, 0)
		return v, nil
	case errors.Is(err, task.ErrTimeout):
		s.trace.Signal(name, trace.SignalTimeout, 0, s.timeout)
		return 0, fmt.Errorf("%w after %s", ErrHandoffTimeout, s.timeout)
	default:
		return 0, err
	}
}

// Timeout returns the wait bound.
func (s *Signal) Timeout() time.Duration {
	return s.timeout
}
