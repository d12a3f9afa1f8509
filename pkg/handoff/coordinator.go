package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/metrics"
	"github.com/tlshandoff/handoff-go/pkg/owner"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Coordinator errors.
var (
	ErrInvalidConfig    = errors.New("handoff: invalid config")
	ErrSessionFailed    = errors.New("handoff: worker could not create session")
	ErrUnexpectedSignal = errors.New("handoff: unexpected signal value")
)

// Defaults.
const (
	DefaultTimeout    = 100 * time.Millisecond
	DefaultWorkerName = "Creator"
)

// Config controls one handoff run.
type Config struct {
	// Timeout bounds the owner's wait for the worker's signal.
	Timeout time.Duration

	// Worker describes the worker task.
	Worker task.Spec

	// SignalDelay is how long the worker waits between creating its session
	// and raising the signal.
	SignalDelay time.Duration

	// CancelOnTimeout cancels the worker's context when the wait times out.
	// The worker only observes it before it has signalled.
	CancelOnTimeout bool

	// TeardownOnSuccess closes the Owner after the session was destroyed.
	// Otherwise the context stays Present for the caller.
	TeardownOnSuccess bool

	// Method is the protocol method the run's context is built for.
	Method tlslib.Method
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: DefaultTimeout,
		Worker: task.Spec{
			Name:      DefaultWorkerName,
			StackSize: task.DefaultStackSize,
			Priority:  task.DefaultPriority,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.SignalDelay < 0 {
		return fmt.Errorf("%w: negative signal delay %s", ErrInvalidConfig, c.SignalDelay)
	}
	if _, err := tlslib.ParseMethod(c.Method.String()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Worker.Validate(); err != nil {
		return fmt.Errorf("%w: worker: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTraceLogger sets where run trace events go.
func WithTraceLogger(l trace.Logger) Option {
	return func(c *Coordinator) {
		c.traceLogger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// Coordinator runs handoffs between the calling task and a spawned worker.
type Coordinator struct {
	lib         tlslib.Library
	sched       *task.Scheduler
	cfg         Config
	logger      *slog.Logger
	traceLogger trace.Logger
	metrics     *metrics.Metrics
}

// New creates a Coordinator.
func New(lib tlslib.Library, sched *task.Scheduler, cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		lib:    lib,
		sched:  sched,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Result describes one run.
type Result struct {
	RunID string

	// Owner is the shared holder. After a timeout it must not be touched.
	Owner *owner.Owner

	// Report is the context load report.
	Report owner.LoadReport

	// Worker is the worker handle, nil when spawning failed.
	Worker *task.Handle

	// Signaled is true when the signal was observed within the bound.
	Signaled bool

	// Value is the observed signal value.
	Value uint32

	// Waited is how long the owner waited for the signal.
	Waited time.Duration

	// Abandoned is true when the owner gave up waiting and left the Owner
	// to the worker.
	Abandoned bool

	// SessionLeaked is true when an abandoned run leaves a session alive:
	// the worker built one before it stopped, or it was not stopped and
	// keeps the Owner.
	SessionLeaked bool
}

// Run executes one handoff on the calling task. ctx names the owning task
// (task.Main when unnamed) and bounds the worker's lifetime: the worker
// parks after signalling until ctx is done or the handle is cancelled.
//
// When the wait ends without a signal, Run never touches the Owner again.
// If the worker is cancelled (CancelOnTimeout, or ctx is done) Run waits
// for it to return, so its task slot is free once Run returns.
func (c *Coordinator) Run(ctx context.Context, paths cert.Paths) (*Result, error) {
	ctx = task.WithName(ctx, task.Name(ctx))
	name := task.Name(ctx)

	runID := uuid.New().String()
	emitter := trace.NewEmitter(c.traceLogger, runID)
	logger := c.logger.With("run_id", runID)

	o := owner.New(c.lib,
		owner.WithLogger(logger),
		owner.WithTrace(emitter),
		owner.WithMetrics(c.metrics),
		owner.WithMethod(c.cfg.Method),
	)
	res := &Result{RunID: runID, Owner: o}

	report, err := o.CreateContext(ctx, paths)
	if err != nil {
		c.metrics.RecordHandoff(metrics.ResultError, 0)
		return res, err
	}
	res.Report = report

	sig := NewSignal(c.cfg.Timeout, emitter)
	var created atomic.Bool
	h, err := c.sched.Spawn(ctx, c.cfg.Worker, c.worker(o, sig, &created, logger, emitter), nil)
	if err != nil {
		// The worker never ran, so the Owner is still ours.
		if cerr := o.Close(ctx); cerr != nil {
			err = errors.Join(err, cerr)
		}
		c.metrics.RecordHandoff(metrics.ResultError, 0)
		return res, err
	}
	res.Worker = h

	logger.Info("Waiting", "task", name, "timeout", c.cfg.Timeout)
	start := time.Now()
	v, err := sig.Await(ctx)
	res.Waited = time.Since(start)

	if err != nil {
		res.Abandoned = true
		result := metrics.ResultTimeout
		if errors.Is(err, ErrHandoffTimeout) {
			logger.Error("Notification timeout", "task", name, "timeout", c.cfg.Timeout)
			emitter.Error(name, err.Error(), nil, "await handoff")
		} else {
			result = metrics.ResultCancelled
			logger.Warn("handoff wait cancelled", "task", name, "error", err)
		}

		// A cancelled worker returns promptly and gives its slot back. One
		// left running keeps the Owner and whatever session it builds.
		if c.cfg.CancelOnTimeout || ctx.Err() != nil {
			h.Cancel()
			<-h.Done()
			res.SessionLeaked = created.Load()
		} else {
			res.SessionLeaked = true
		}
		c.metrics.RecordHandoff(result, res.Waited)
		if res.SessionLeaked {
			c.metrics.RecordSessionLeaked()
		}
		return res, err
	}

	res.Signaled = true
	res.Value = v
	logger.Info("Notification received", "task", name, "value", v, "waited", res.Waited)

	if err := o.DestroySession(ctx); err != nil {
		c.metrics.RecordHandoff(metrics.ResultError, res.Waited)
		return res, err
	}
	if c.cfg.TeardownOnSuccess {
		if err := o.Close(ctx); err != nil {
			c.metrics.RecordHandoff(metrics.ResultError, res.Waited)
			return res, err
		}
	}

	switch v {
	case ValueCreated:
		c.metrics.RecordHandoff(metrics.ResultSignaled, res.Waited)
		return res, nil
	case ValueFailed:
		c.metrics.RecordHandoff(metrics.ResultError, res.Waited)
		return res, ErrSessionFailed
	default:
		c.metrics.RecordHandoff(metrics.ResultError, res.Waited)
		return res, fmt.Errorf("%w: %d", ErrUnexpectedSignal, v)
	}
}

// worker returns the worker task body. It creates a session on o, raises
// sig and parks. It never touches o after raising.
func (c *Coordinator) worker(o *owner.Owner, sig *Signal, created *atomic.Bool, logger *slog.Logger, emitter *trace.Emitter) task.Entry {
	delay := c.cfg.SignalDelay
	return func(ctx context.Context, _ any) {
		name := task.Name(ctx)
		if ctx.Err() != nil {
			logger.Warn("worker cancelled before creating session", "task", name)
			return
		}

		v := ValueCreated
		if err := o.CreateSession(ctx); err != nil {
			v = ValueFailed
		} else {
			created.Store(true)
		}

		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				logger.Warn("worker cancelled before signalling", "task", name)
				return
			}
		}

		logger.Info("Signalling", "task", name, "value", v)
		sig.Raise(ctx, v)

		emitter.Lifecycle(name, trace.ResourceTask, name, trace.StateRunning, trace.StateParked, "handed off")
		<-ctx.Done()
	}
}
