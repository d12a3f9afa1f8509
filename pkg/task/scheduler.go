package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Scheduler errors.
var (
	ErrSpawnFailed = errors.New("task: spawn failed")
	ErrInvalidSpec = errors.New("task: invalid spec")
)

// Defaults for spawned tasks.
const (
	DefaultStackSize = 4096
	DefaultPriority  = 3
)

// Spec describes a task to spawn.
type Spec struct {
	Name      string
	StackSize int
	Priority  int
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSpec)
	}
	if s.StackSize < 0 {
		return fmt.Errorf("%w: negative stack size %d", ErrInvalidSpec, s.StackSize)
	}
	return nil
}

// Entry is a task body. ctx carries the task name and is cancelled by
// Handle.Cancel or when the spawning context is done.
type Entry func(ctx context.Context, arg any)

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTrace sets the lifecycle trace emitter.
func WithTrace(e *trace.Emitter) SchedulerOption {
	return func(s *Scheduler) {
		s.trace = e
	}
}

// Scheduler runs a fixed number of cooperating tasks. Spawning beyond
// capacity fails immediately instead of queueing. A slot is free again once
// the task's Done channel is closed.
type Scheduler struct {
	pool     *ants.Pool
	capacity int32
	active   atomic.Int32
	logger   *slog.Logger
	trace    *trace.Emitter
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler that runs at most capacity tasks at once.
func NewScheduler(capacity int, opts ...SchedulerOption) (*Scheduler, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", ErrSpawnFailed, capacity)
	}
	s := &Scheduler{capacity: int32(capacity), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	// Slots are counted here, so the pool itself may block for the moment
	// ants needs to recycle a worker whose task already returned.
	pool, err := ants.NewPool(capacity,
		ants.WithPanicHandler(func(p any) {
			s.logger.Error("task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}
	s.pool = pool
	return s, nil
}

// Running returns the number of tasks whose body has not returned yet.
func (s *Scheduler) Running() int {
	return int(s.active.Load())
}

// Cap returns the scheduler capacity.
func (s *Scheduler) Cap() int {
	return int(s.capacity)
}

// Spawn starts entry as a new task. The returned handle tracks completion.
func (s *Scheduler) Spawn(ctx context.Context, spec Spec, entry Entry, arg any) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.StackSize == 0 {
		spec.StackSize = DefaultStackSize
	}

	if n := s.active.Add(1); n > s.capacity {
		s.active.Add(-1)
		s.logger.Error("task spawn failed", "task", spec.Name, "running", n-1, "capacity", s.capacity)
		return nil, fmt.Errorf("%w: %s: all %d slots in use", ErrSpawnFailed, spec.Name, s.capacity)
	}

	taskCtx, cancel := context.WithCancel(WithName(ctx, spec.Name))
	h := &Handle{
		spec:   spec,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.wg.Add(1)
	err := s.pool.Submit(func() {
		defer s.wg.Done()
		defer close(h.done)
		defer s.active.Add(-1)
		defer cancel()
		s.trace.Lifecycle(spec.Name, trace.ResourceTask, spec.Name, trace.StateAbsent, trace.StateRunning, "")
		entry(taskCtx, arg)
		s.trace.Lifecycle(spec.Name, trace.ResourceTask, spec.Name, trace.StateRunning, trace.StateAbsent, "returned")
	})
	if err != nil {
		s.active.Add(-1)
		s.wg.Done()
		cancel()
		s.logger.Error("task spawn failed", "task", spec.Name, "error", err)
		return nil, fmt.Errorf("%w: %s: %v", ErrSpawnFailed, spec.Name, err)
	}

	s.logger.Debug("task spawned",
		"task", spec.Name,
		"stack_size", spec.StackSize,
		"priority", spec.Priority)
	return h, nil
}

// Release stops accepting tasks and waits up to timeout for running tasks
// to return. Running tasks must observe their context to exit.
func (s *Scheduler) Release(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("task: %d task(s) still running after %s", s.Running(), timeout)
	}
	s.pool.Release()
	return err
}

// Handle tracks a spawned task.
type Handle struct {
	spec   Spec
	cancel context.CancelFunc
	done   chan struct{}
}

// Name returns the task name.
func (h *Handle) Name() string {
	return h.spec.Name
}

// Spec returns the spec the task was spawned with.
func (h *Handle) Spec() Spec {
	return h.spec
}

// Cancel asks the task to stop. The task observes this through its context.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done is closed when the task body returns.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
