package ports

import "context"

// AnalyticsSink receives discrete lifecycle events (see domain.Event*
// constants). All calls are fire-and-forget: implementations must not block
// navigation, and emission failures are swallowed by the caller after
// logging.
type AnalyticsSink interface {
	Emit(ctx context.Context, event string, payload map[string]any)
}

// AnalyticsSinkFunc adapts a function to the AnalyticsSink interface.
type AnalyticsSinkFunc func(ctx context.Context, event string, payload map[string]any)

func (f AnalyticsSinkFunc) Emit(ctx context.Context, event string, payload map[string]any) {
	f(ctx, event, payload)
}
