package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/espalier-io/espalier/pkg/domain"
)

// PrometheusSink counts lifecycle events and observes route evaluation
// latency. It implements ports.AnalyticsSink.
type PrometheusSink struct {
	events       *prometheus.CounterVec
	routeLatency prometheus.Histogram
}

// NewPrometheusSink registers the metrics with the given registerer.
// Use prometheus.DefaultRegisterer for the process-wide registry.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "espalier_form_events_total",
				Help: "Total number of form lifecycle events",
			},
			[]string{"form", "event"},
		),
		routeLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "espalier_route_evaluation_seconds",
				Help:    "Route evaluation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (s *PrometheusSink) Emit(ctx context.Context, event string, payload map[string]any) {
	form, _ := payload[domain.PayloadFormID].(string)
	s.events.WithLabelValues(form, event).Inc()

	if event == domain.EventQuestionProgressed {
		if d, ok := payload[domain.PayloadDuration].(float64); ok && d > 0 {
			s.routeLatency.Observe(d)
		}
	}
}
