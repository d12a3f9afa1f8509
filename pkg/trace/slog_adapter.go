package trace

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter. A nil logger means slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("category", event.Category.String()),
	}
	if event.Task != "" {
		attrs = append(attrs, slog.String("task", event.Task))
	}

	switch {
	case event.Lifecycle != nil:
		attrs = append(attrs,
			slog.String("resource", event.Lifecycle.Resource.String()),
			slog.String("old_state", event.Lifecycle.OldState),
			slog.String("new_state", event.Lifecycle.NewState),
		)
		if event.Lifecycle.Handle != "" {
			attrs = append(attrs, slog.String("handle", event.Lifecycle.Handle))
		}
		if event.Lifecycle.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Lifecycle.Reason))
		}
	case event.Load != nil:
		attrs = append(attrs,
			slog.String("step", event.Load.Step),
			slog.String("path", event.Load.Path),
			slog.Int("code", event.Load.Code),
			slog.Bool("ok", event.Load.OK),
		)
	case event.Signal != nil:
		attrs = append(attrs,
			slog.String("signal", event.Signal.Kind.String()),
			slog.Uint64("value", uint64(event.Signal.Value)),
		)
		if event.Signal.Timeout > 0 {
			attrs = append(attrs, slog.Duration("timeout", event.Signal.Timeout))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
