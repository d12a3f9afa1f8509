package task

import "context"

// Main is the name of the owning task when none was set.
const Main = "main"

type nameKey struct{}

// WithName returns a context that carries the task name.
func WithName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nameKey{}, name)
}

// Name returns the task name carried by ctx, or Main.
func Name(ctx context.Context) string {
	if ctx != nil {
		if name, ok := ctx.Value(nameKey{}).(string); ok && name != "" {
			return name
		}
	}
	return Main
}
