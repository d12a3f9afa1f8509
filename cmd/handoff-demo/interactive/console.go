// Package interactive provides the interactive console for handoff-demo.
// The console runs on the owning task and drives an Owner by hand; the
// handoff command runs a full cross-task run on a fresh Owner.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/tlshandoff/handoff-go/pkg/cert"
	"github.com/tlshandoff/handoff-go/pkg/entropy"
	"github.com/tlshandoff/handoff-go/pkg/handoff"
	"github.com/tlshandoff/handoff-go/pkg/metrics"
	"github.com/tlshandoff/handoff-go/pkg/owner"
	"github.com/tlshandoff/handoff-go/pkg/task"
	"github.com/tlshandoff/handoff-go/pkg/tlslib"
)

// RunFunc runs one handoff with the given signal delay.
type RunFunc func(ctx context.Context, signalDelay time.Duration) (*handoff.Result, error)

// CoordinatorRunner returns a RunFunc that runs each handoff on a fresh
// Owner, tears it down on success and cancels a worker that missed the
// deadline. Every run gives its task slot back before returning, so runs
// can follow each other on a one-slot scheduler.
func CoordinatorRunner(lib tlslib.Library, sched *task.Scheduler, base handoff.Config, paths cert.Paths, opts ...handoff.Option) RunFunc {
	return func(ctx context.Context, delay time.Duration) (*handoff.Result, error) {
		hc := base
		hc.SignalDelay = delay
		hc.TeardownOnSuccess = true
		hc.CancelOnTimeout = true
		coord, err := handoff.New(lib, sched, hc, opts...)
		if err != nil {
			return nil, err
		}
		res, err := coord.Run(ctx, paths)
		if res != nil && res.Worker != nil {
			res.Worker.Cancel()
			<-res.Worker.Done()
		}
		return res, err
	}
}

// Deps are the components the console drives.
type Deps struct {
	Owner   *owner.Owner
	Lib     *tlslib.Std
	Entropy *entropy.SystemProvider
	Metrics *metrics.Metrics
	Paths   cert.Paths
	Handoff RunFunc
}

// Console is the interactive command loop.
type Console struct {
	deps Deps
	rl   *readline.Instance
	out  io.Writer
}

// New creates a console reading from the terminal.
func New(deps Deps) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "handoff> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{deps: deps, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if !c.Execute(ctx, input) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the console should
// exit.
func (c *Console) Execute(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "context", "ctx":
		c.cmdContext(ctx)
	case "session", "sess":
		c.report(c.deps.Owner.CreateSession(ctx))
	case "drop-session", "ds":
		c.report(c.deps.Owner.DestroySession(ctx))
	case "drop-context", "dc":
		c.report(c.deps.Owner.DestroyContext(ctx))
	case "close":
		c.report(c.deps.Owner.Close(ctx))
	case "handoff", "run":
		c.cmdHandoff(ctx, args)
	case "entropy":
		c.cmdEntropy(args)
	case "status", "s":
		c.cmdStatus()
	case "metrics", "m":
		if err := c.deps.Metrics.WriteSummary(c.out); err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
		}
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "OK")
}

func (c *Console) cmdContext(ctx context.Context) {
	report, err := c.deps.Owner.CreateContext(ctx, c.deps.Paths)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	for _, s := range report.Steps {
		mark := "ok"
		if !s.OK() {
			mark = "FAILED"
		}
		fmt.Fprintf(c.out, "  %-14s %-6s %-18s %s\n", s.Step, mark, s.Code, s.Path)
	}
}

func (c *Console) cmdHandoff(ctx context.Context, args []string) {
	if c.deps.Handoff == nil {
		fmt.Fprintln(c.out, "Handoff runs are not available")
		return
	}
	var delay time.Duration
	if len(args) > 0 {
		d, err := time.ParseDuration(args[0])
		if err != nil {
			fmt.Fprintf(c.out, "Invalid delay %q: %v\n", args[0], err)
			return
		}
		delay = d
	}

	res, err := c.deps.Handoff(ctx, delay)
	if res != nil {
		fmt.Fprintf(c.out, "Run %s: signaled=%v value=%d waited=%s leaked=%v\n",
			res.RunID, res.Signaled, res.Value, res.Waited.Round(time.Microsecond), res.SessionLeaked)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}

func (c *Console) cmdEntropy(args []string) {
	if c.deps.Entropy == nil {
		fmt.Fprintln(c.out, "No switchable entropy provider")
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Entropy ready: %v\n", c.deps.Entropy.Ready())
		return
	}
	switch strings.ToLower(args[0]) {
	case "on":
		c.deps.Entropy.Activate()
	case "off":
		c.deps.Entropy.Deactivate()
	default:
		fmt.Fprintln(c.out, "Usage: entropy [on|off]")
		return
	}
	fmt.Fprintf(c.out, "Entropy ready: %v\n", c.deps.Entropy.Ready())
}

func (c *Console) cmdStatus() {
	o := c.deps.Owner
	fmt.Fprintf(c.out, "Context: %s\n", presence(o.HasContext()))
	if ctx := o.Context(); ctx != nil {
		fmt.Fprintf(c.out, "  id=%s anchors=%d cert=%v key=%v\n",
			ctx.ID(), ctx.TrustAnchors(), ctx.HasCertificate(), ctx.HasPrivateKey())
	}
	fmt.Fprintf(c.out, "Session: %s\n", presence(o.HasSession()))
	if s := o.Session(); s != nil {
		fmt.Fprintf(c.out, "  id=%s\n", s.ID())
	}
	if c.deps.Lib != nil {
		fmt.Fprintf(c.out, "Library: contexts=%d sessions=%d violations=%d\n",
			c.deps.Lib.LiveContexts(), c.deps.Lib.LiveSessions(), c.deps.Lib.Violations())
	}
}

func presence(ok bool) string {
	if ok {
		return "PRESENT"
	}
	return "ABSENT"
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Handoff Console Commands:
  Owner:
    context            - Create the context and load certificate material
    session            - Create a session on the current context
    drop-session       - Destroy the session
    drop-context       - Destroy the session and context
    close              - Tear down everything (session first)

  Runs:
    handoff [delay]    - Run a cross-task handoff (worker signals after delay)

  Diagnostics:
    entropy [on|off]   - Show or switch entropy readiness
    status             - Show owner and library state
    metrics            - Show non-zero metrics

  Other:
    help               - Show this help
    quit               - Exit`)
}
