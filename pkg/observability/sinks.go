package observability

import (
	"context"
	"log/slog"

	"github.com/espalier-io/espalier/pkg/ports"
)

// LogSink writes every event as one structured log line at Info level.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event string, payload map[string]any) {
	attrs := make([]any, 0, len(payload)*2)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, "analytics: "+event, attrs...)
}

// MultiSink fans events out to every child sink in order.
type MultiSink struct {
	sinks []ports.AnalyticsSink
}

// NewMultiSink combines sinks. Nil children are skipped.
func NewMultiSink(sinks ...ports.AnalyticsSink) *MultiSink {
	out := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			out.sinks = append(out.sinks, s)
		}
	}
	return out
}

func (s *MultiSink) Emit(ctx context.Context, event string, payload map[string]any) {
	for _, child := range s.sinks {
		child.Emit(ctx, event, payload)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(ctx context.Context, event string, payload map[string]any) {}
