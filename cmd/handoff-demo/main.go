// Command handoff-demo runs the cross-task TLS session handoff.
//
// It mounts the content volume, waits for the entropy source, builds a TLS
// context from the certificate material on the volume, lets a worker task
// create a session on it and, once the worker has signalled, destroys that
// session from the owning task. Afterwards it parks until interrupted.
//
// Usage:
//
//	handoff-demo [flags]
//
// Flags:
//
//	-config string        Configuration file (.yaml, .yml or .toml)
//	-base-path string     Mount point of the content volume
//	-timeout duration     Bound on the wait for the worker's signal
//	-signal-delay duration
//	                      Delay between session creation and the signal
//	-cancel-on-timeout    Cancel the worker when the wait times out
//	-teardown             Close the context after a successful handoff
//	-entropy-delay duration
//	                      Simulate an entropy source that becomes ready late
//	-trace-file string    Write the lifecycle trace to this .htrace file
//	-state-file string    Append each run to this JSON run history
//	-log-level string     Log level: debug, info, warn, error
//	-park                 Park after the run until SIGINT/SIGTERM (default true)
//	-interactive          Start the interactive console
//
// Examples:
//
//	# Successful handoff against provisioned material
//	handoff-demo -base-path ./content
//
//	# Worker signals too late; the session is leaked and reported
//	handoff-demo -base-path ./content -signal-delay 150ms -park=false
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tlshandoff/handoff-go/cmd/handoff-demo/interactive"
	"github.com/tlshandoff/handoff-go/pkg/config"
	"github.com/tlshandoff/handoff-go/pkg/entropy"
	"github.com/tlshandoff/handoff-go/pkg/handoff"
	"github.com/tlshandoff/handoff-go/pkg/metrics"
	"github.com/tlshandoff/handoff-go/pkg/owner"
	"github.com/tlshandoff/handoff-go/pkg/persistence"
	"github.com/tlshandoff/handoff-go/pkg/storage"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
	"github.com/tlshandoff/handoff-go/pkg/trace"
)

// Flags holds command-line overrides. Zero values leave the loaded
// configuration untouched.
type Flags struct {
	ConfigFile      string
	BasePath        string
	Timeout         time.Duration
	SignalDelay     time.Duration
	CancelOnTimeout bool
	Teardown        bool
	EntropyDelay    time.Duration
	TraceFile       string
	StateFile       string
	LogLevel        string
	Park            bool
	Interactive     bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file (.yaml, .yml or .toml)")
	flag.StringVar(&flags.BasePath, "base-path", "", "Mount point of the content volume")
	flag.DurationVar(&flags.Timeout, "timeout", 0, "Bound on the wait for the worker's signal")
	flag.DurationVar(&flags.SignalDelay, "signal-delay", 0, "Delay between session creation and the signal")
	flag.BoolVar(&flags.CancelOnTimeout, "cancel-on-timeout", false, "Cancel the worker when the wait times out")
	flag.BoolVar(&flags.Teardown, "teardown", false, "Close the context after a successful handoff")
	flag.DurationVar(&flags.EntropyDelay, "entropy-delay", 0, "Simulate an entropy source that becomes ready late")
	flag.StringVar(&flags.TraceFile, "trace-file", "", "Write the lifecycle trace to this .htrace file")
	flag.StringVar(&flags.StateFile, "state-file", "", "Append each run to this JSON run history")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.BoolVar(&flags.Park, "park", true, "Park after the run until SIGINT/SIGTERM")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Start the interactive console")
}

func main() {
	flag.Parse()
	os.Exit(run())
}

// run executes the demo and returns the process exit code. Every exit path
// returns through here so deferred cleanup runs.
func run() int {
	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	fmt.Println("TLS Session Handoff")
	fmt.Println("===================")
	fmt.Printf("Base path: %s (%s)\n", cfg.Storage.BasePath, cfg.Storage.PartitionLabel)
	fmt.Printf("Handoff timeout: %s\n", cfg.Handoff.Timeout)

	traceLogger, closeTrace, err := setupTrace(cfg.Logging.TraceFile, logger)
	if err != nil {
		logger.Error("Failed to open trace file", "error", err)
		return 1
	}
	defer closeTrace()

	ctx, cancel := context.WithCancel(task.WithName(context.Background(), task.Main))
	defer cancel()

	m := metrics.New()
	startup := trace.NewEmitter(traceLogger, "startup")

	// Entropy must be ready before any session can be built.
	provider := entropy.NewSystemProvider(cfg.Entropy.ActivateAfter == 0)
	if d := time.Duration(cfg.Entropy.ActivateAfter); d > 0 {
		time.AfterFunc(d, provider.Activate)
	}
	src := entropy.NewSource(provider, entropy.WithObserver(m.RecordEntropyFill))
	if err := entropy.WaitReady(ctx, provider, cfg.WaitPolicy()); err != nil {
		logger.Error("Entropy source not ready", "error", err, "code", entropy.Code(err))
		return 1
	}

	out := io.Writer(os.Stdout)
	if _, err := storage.BringUp(cfg.Storage, out, logger, startup); err != nil {
		return 1
	}

	lib := tlslib.NewStd(entropy.NewReader(src), tlslib.WithLogger(logger))
	sched, err := task.NewScheduler(1,
		task.WithLogger(logger),
		task.WithTrace(startup))
	if err != nil {
		logger.Error("Failed to create scheduler", "error", err)
		return 1
	}
	// Parked workers only return once ctx is cancelled.
	defer func() {
		cancel()
		if err := sched.Release(time.Second); err != nil {
			logger.Warn("Tasks still running at exit", "error", err)
		}
	}()
	logger.Debug("Scheduler ready", "capacity", sched.Cap())

	coord, err := handoff.New(lib, sched, cfg.HandoffConfig(),
		handoff.WithLogger(logger),
		handoff.WithTraceLogger(traceLogger),
		handoff.WithMetrics(m))
	if err != nil {
		logger.Error("Invalid handoff configuration", "error", err)
		return 1
	}

	if flags.Interactive {
		runInteractive(ctx, cancel, cfg, lib, provider, m, traceLogger, logger, sched)
		return 0
	}

	res, runErr := coord.Run(ctx, cfg.Paths())
	printResult(out, res, runErr)
	recordRun(cfg.Logging.StateFile, res, runErr, out, logger)

	fmt.Fprintln(out, "Metrics:")
	if err := m.WriteSummary(out); err != nil {
		logger.Warn("Failed to write metrics summary", "error", err)
	}

	if flags.Park {
		log := logger.With("task", task.Main)
		log.Info("Parked; press Ctrl+C to exit")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("Received signal", "signal", sig)
	}

	// An abandoned Owner may still be in the worker's hands.
	if res != nil && !res.Abandoned {
		if err := res.Owner.Close(ctx); err != nil {
			logger.Warn("Teardown failed", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	return 0
}

func loadConfig(f Flags) (*config.Config, error) {
	cfg, err := config.Load(f.ConfigFile)
	if err != nil {
		return nil, err
	}

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	if set["base-path"] {
		cfg.Storage.BasePath = f.BasePath
	}
	if set["timeout"] {
		cfg.Handoff.Timeout = config.Duration(f.Timeout)
	}
	if set["signal-delay"] {
		cfg.Handoff.SignalDelay = config.Duration(f.SignalDelay)
	}
	if set["cancel-on-timeout"] {
		cfg.Handoff.CancelOnTimeout = f.CancelOnTimeout
	}
	if set["teardown"] {
		cfg.Handoff.TeardownOnSuccess = f.Teardown
	}
	if set["entropy-delay"] {
		cfg.Entropy.ActivateAfter = config.Duration(f.EntropyDelay)
	}
	if set["trace-file"] {
		cfg.Logging.TraceFile = f.TraceFile
	}
	if set["state-file"] {
		cfg.Logging.StateFile = f.StateFile
	}
	if set["log-level"] {
		cfg.Logging.Level = f.LogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupTrace routes trace events to the debug log and, if path is set, to
// a CBOR trace file.
func setupTrace(path string, logger *slog.Logger) (trace.Logger, func(), error) {
	adapter := trace.NewSlogAdapter(logger)
	if path == "" {
		return adapter, func() {}, nil
	}
	fl, err := trace.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := fl.Err(); err != nil {
			logger.Warn("Trace events were lost", "path", path, "error", err)
		}
		logger.Debug("Trace file closed", "path", path, "events", fl.Written())
		if err := fl.Close(); err != nil {
			logger.Warn("Failed to close trace file", "error", err)
		}
	}
	return trace.NewMultiLogger(fl, adapter), closeFn, nil
}

func printResult(w io.Writer, res *handoff.Result, err error) {
	fmt.Fprintln(w, "----------------------------------------")
	if res != nil {
		fmt.Fprintf(w, "Run:       %s\n", res.RunID)
		for _, s := range res.Report.Failed() {
			fmt.Fprintf(w, "Load:      %s failed with %s (%s)\n", s.Step, s.Code, s.Path)
		}
		fmt.Fprintf(w, "Signaled:  %v (value %d)\n", res.Signaled, res.Value)
		fmt.Fprintf(w, "Waited:    %s\n", res.Waited.Round(time.Microsecond))
		if res.SessionLeaked {
			fmt.Fprintln(w, "Session:   left with worker")
		}
	}
	if err != nil {
		fmt.Fprintf(w, "Result:    %v\n", err)
	} else {
		fmt.Fprintln(w, "Result:    session handed off and destroyed")
	}
	fmt.Fprintln(w, "----------------------------------------")
}

// recordRun appends the run to the history at path and warns about earlier
// runs that also left a session with their worker.
func recordRun(path string, res *handoff.Result, runErr error, w io.Writer, logger *slog.Logger) {
	if path == "" {
		return
	}
	store := persistence.NewHistoryStore(path)
	h, err := store.Append(persistence.RecordFromResult(res, runErr))
	if err != nil {
		logger.Warn("Failed to save run history", "path", path, "error", err)
		return
	}
	if leaked := h.Leaked(); len(leaked) > 0 {
		fmt.Fprintf(w, "History:   %d of %d recorded runs leaked a session\n", len(leaked), len(h.Runs))
	}
}

func runInteractive(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	lib *tlslib.Std,
	provider *entropy.SystemProvider,
	m *metrics.Metrics,
	traceLogger trace.Logger,
	logger *slog.Logger,
	sched *task.Scheduler,
) {
	o := owner.New(lib,
		owner.WithLogger(logger),
		owner.WithTrace(trace.NewEmitter(traceLogger, "console")),
		owner.WithMetrics(m),
		owner.WithMethod(cfg.Method()))

	runHandoff := interactive.CoordinatorRunner(lib, sched, cfg.HandoffConfig(), cfg.Paths(),
		handoff.WithLogger(logger),
		handoff.WithTraceLogger(traceLogger),
		handoff.WithMetrics(m))

	console, err := interactive.New(interactive.Deps{
		Owner:   o,
		Lib:     lib,
		Entropy: provider,
		Metrics: m,
		Paths:   cfg.Paths(),
		Handoff: runHandoff,
	})
	if err != nil {
		logger.Error("Failed to start console", "error", err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	console.Run(ctx, cancel)
	if err := o.Close(ctx); err != nil {
		logger.Warn("Teardown failed", "error", err)
	}
}
