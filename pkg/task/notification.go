package task

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned by Wait when no notification arrived in time.
var ErrTimeout = errors.New("task: notification timeout")

// Notification is a single-slot, task-to-task signal. A newer value
// overwrites an unconsumed one. The send in Notify happens before the
// receive in Wait that observes it.
type Notification struct {
	mu sync.Mutex
	ch chan uint32
}

// NewNotification creates an empty notification slot.
func NewNotification() *Notification {
	return &Notification{ch: make(chan uint32, 1)}
}

// Notify stores v, replacing any pending value. It never blocks.
func (n *Notification) Notify(v uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	select {
	case <-n.ch:
	default:
	}
	n.ch <- v
}

// Pending reports whether a value is waiting to be consumed.
func (n *Notification) Pending() bool {
	return len(n.ch) > 0
}

// Wait consumes the pending value, blocking for at most timeout.
// It returns ErrTimeout when the bound expires and ctx.Err() when ctx is
// done first.
func (n *Notification) Wait(ctx context.Context, timeout time.Duration) (uint32, error) {
	select {
	case v := <-n.ch:
		return v, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case v := <-n.ch:
		return v, nil
	case <-timer.C:
		return 0, ErrTimeout
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
