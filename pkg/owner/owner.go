package owner

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/metrics"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Option configures an Owner.
type Option func(*Owner)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Owner) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTrace sets the lifecycle trace emitter.
func WithTrace(e *trace.Emitter) Option {
	return func(o *Owner) {
		o.trace = e
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Owner) {
		o.metrics = m
	}
}

// WithMethod selects the protocol method contexts are built for.
// The default is tlslib.MethodClient.
func WithMethod(m tlslib.Method) Option {
	return func(o *Owner) {
		o.method = m
	}
}

// Owner holds at most one context and at most one session. A session only
// exists while a context exists.
type Owner struct {
	lib     tlslib.Library
	method  tlslib.Method
	logger  *slog.Logger
	trace   *trace.Emitter
	metrics *metrics.Metrics

	ctx     *tlslib.Context
	session *tlslib.Session
	report  LoadReport

	mutating atomic.Bool
}

// New creates an empty Owner backed by lib.
func New(lib tlslib.Library, opts ...Option) *Owner {
	o := &Owner{
		lib:    lib,
		method: tlslib.MethodClient,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// enter opens a mutation window. The returned func closes it.
func (o *Owner) enter(name, op string) (func(), error) {
	if !o.mutating.CompareAndSwap(false, true) {
		o.metrics.RecordMutationOverlap()
		o.logger.Error("overlapping owner mutation", "task", name, "op", op)
		o.trace.Error(name, "overlapping owner mutation", nil, op)
		return nil, fmt.Errorf("%w: %s on task %s", ErrConcurrentMutation, op, name)
	}
	return func() { o.mutating.Store(false) }, nil
}

// CreateContext replaces any existing context and session with a new
// context configured from paths. The three load steps run independently;
// each failure is logged, traced and reported but does not abort the others.
// The context stays Present even when degraded, so the returned error is
// only non-nil when allocation fails or the call overlapped another mutation.
// Use LoadReport.OK or LoadReport.Err to check the material.
func (o *Owner) CreateContext(ctx context.Context, paths cert.Paths) (LoadReport, error) {
	name := task.Name(ctx)
	leave, err := o.enter(name, "create context")
	if err != nil {
		return LoadReport{}, err
	}
	defer leave()

	o.teardown(name, "replaced")

	o.logger.Info("Creating context", "task", name)
	c, err := o.lib.NewContext(o.method)
	if err != nil {
		o.metrics.RecordContext("create", err)
		o.logger.Error("context allocation failed", "task", name, "error", err)
		o.trace.Error(name, err.Error(), nil, "create context")
		return LoadReport{}, fmt.Errorf("%w: context: %w", ErrAllocationFailed, err)
	}
	o.ctx = c
	o.metrics.RecordContext("create", nil)
	o.trace.Lifecycle(name, trace.ResourceContext, c.ID(), trace.StateAbsent, trace.StatePresent, "")

	report := LoadReport{Steps: []StepResult{
		o.load(name, StepTrustAnchors, paths.TrustAnchors, func() tlslib.Code {
			return o.lib.LoadVerifyLocations(c, paths.TrustAnchors)
		}),
		o.load(name, StepCertificate, paths.ClientCert, func() tlslib.Code {
			return o.lib.UseCertificateFile(c, paths.ClientCert, tlslib.FileTypePEM)
		}),
		o.load(name, StepPrivateKey, paths.ClientKey, func() tlslib.Code {
			return o.lib.UsePrivateKeyFile(c, paths.ClientKey, tlslib.FileTypeDER)
		}),
	}}
	o.report = report
	return report, nil
}

func (o *Owner) load(name string, step Step, path string, fn func() tlslib.Code) StepResult {
	code := fn()
	res := StepResult{Step: step, Path: path, Code: code}
	o.trace.Load(name, step.String(), path, int(code), code.OK())
	if code.OK() {
		return res
	}

	res.Err = &LoadError{Step: step, Path: path, Code: code}
	o.metrics.RecordLoadFailure(step.String())
	o.logger.Error(fmt.Sprintf("Error %d loading %s", int(code), step.describe()),
		"task", name,
		"path", path,
		"code", code.String())
	return res
}

// DestroyContext releases the session, if any, then the context.
// It is a no-op when no context exists.
func (o *Owner) DestroyContext(ctx context.Context) error {
	name := task.Name(ctx)
	leave, err := o.enter(name, "destroy context")
	if err != nil {
		return err
	}
	defer leave()

	o.teardown(name, "destroyed")
	return nil
}

// CreateSession replaces any existing session with a new one bound to the
// current context. It fails with ErrNoContext when no context exists.
func (o *Owner) CreateSession(ctx context.Context) error {
	name := task.Name(ctx)
	leave, err := o.enter(name, "create session")
	if err != nil {
		return err
	}
	defer leave()

	if o.ctx == nil {
		o.metrics.RecordSession("create", name, ErrNoContext)
		o.logger.Error("cannot create session without context", "task", name)
		o.trace.Error(name, ErrNoContext.Error(), nil, "create session")
		return ErrNoContext
	}

	o.freeSession(name, "replaced")

	o.logger.Info("Creating session", "task", name)
	s, err := o.lib.NewSession(o.ctx)
	if err != nil {
		o.metrics.RecordSession("create", name, err)
		o.logger.Error("session allocation failed", "task", name, "error", err)
		o.trace.Error(name, err.Error(), nil, "create session")
		return fmt.Errorf("%w: session: %w", ErrAllocationFailed, err)
	}
	o.session = s
	o.metrics.RecordSession("create", name, nil)
	o.trace.Lifecycle(name, trace.ResourceSession, s.ID(), trace.StateAbsent, trace.StatePresent, "")
	return nil
}

// DestroySession releases the session. It is a no-op when none exists.
func (o *Owner) DestroySession(ctx context.Context) error {
	name := task.Name(ctx)
	leave, err := o.enter(name, "destroy session")
	if err != nil {
		return err
	}
	defer leave()

	o.freeSession(name, "destroyed")
	return nil
}

// Close is the single teardown entry point: session first, then context.
// It is safe to call repeatedly.
func (o *Owner) Close(ctx context.Context) error {
	name := task.Name(ctx)
	leave, err := o.enter(name, "close")
	if err != nil {
		return err
	}
	defer leave()

	o.teardown(name, "closed")
	return nil
}

func (o *Owner) teardown(name, reason string) {
	o.freeSession(name, reason)
	if o.ctx == nil {
		return
	}
	o.logger.Info("Destroying context", "task", name)
	id := o.ctx.ID()
	o.lib.FreeContext(o.ctx)
	o.ctx = nil
	o.report = LoadReport{}
	o.metrics.RecordContext("destroy", nil)
	o.trace.Lifecycle(name, trace.ResourceContext, id, trace.StatePresent, trace.StateAbsent, reason)
}

func (o *Owner) freeSession(name, reason string) {
	if o.session == nil {
		return
	}
	o.logger.Info("Destroying session", "task", name)
	id := o.session.ID()
	o.lib.FreeSession(o.session)
	o.session = nil
	o.metrics.RecordSession("destroy", name, nil)
	o.trace.Lifecycle(name, trace.ResourceSession, id, trace.StatePresent, trace.StateAbsent, reason)
}

// The accessors below read state without a mutation window. Call them
// only from the task that currently holds the Owner.

// HasContext reports whether a context is Present.
func (o *Owner) HasContext() bool {
	return o.ctx != nil
}

// HasSession reports whether a session is Present.
func (o *Owner) HasSession() bool {
	return o.session != nil
}

// Context returns the current context, or nil.
func (o *Owner) Context() *tlslib.Context {
	return o.ctx
}

// Session returns the current session, or nil.
func (o *Owner) Session() *tlslib.Session {
	return o.session
}

// LastLoadReport returns the report of the CreateContext call that built the
// current context. It is empty when no context is Present.
func (o *Owner) LastLoadReport() LoadReport {
	return o.report
}
