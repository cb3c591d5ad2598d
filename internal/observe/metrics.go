package observe

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsObserver turns events into Prometheus series.
type MetricsObserver struct {
	events        *prometheus.CounterVec
	draftDuration *prometheus.HistogramVec
	draftTokens   *prometheus.CounterVec
	draftCost     *prometheus.CounterVec
	draftAttempts *prometheus.HistogramVec
}

func NewMetricsObserver(reg prometheus.Registerer) *MetricsObserver {
	f := promauto.With(reg)
	return &MetricsObserver{
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_events_total",
				Help: "Checkpoint events emitted by the reconciler and draft generator",
			},
			[]string{"stage", "category"},
		),
		draftDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recap_draft_generation_seconds",
				Help:    "Wall clock time of a draft generation invocation",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 180},
			},
			[]string{"status"},
		),
		draftTokens: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_draft_tokens_total",
				Help: "Completion tokens consumed by generated drafts",
			},
			[]string{"model", "direction"},
		),
		draftCost: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recap_draft_cost_usd_total",
				Help: "Estimated completion spend in USD",
			},
			[]string{"model"},
		),
		draftAttempts: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recap_draft_attempts",
				Help:    "Completion attempts per draft invocation",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"status"},
		),
	}
}

func (m *MetricsObserver) OnEvent(_ context.Context, stage Stage, fields Fields) {
	category, _ := fields["category"].(string)
	m.events.WithLabelValues(string(stage), category).Inc()

	switch stage {
	case DraftGenerated, DraftFailed:
		status := "generated"
		if stage == DraftFailed {
			status = "failed"
		}
		if ms, ok := toFloat(fields["duration_ms"]); ok {
			m.draftDuration.WithLabelValues(status).Observe(ms / 1000)
		}
		if n, ok := toFloat(fields["attempts"]); ok {
			m.draftAttempts.WithLabelValues(status).Observe(n)
		}
		if stage == DraftFailed {
			return
		}
		model := fmt.Sprint(fields["model"])
		if n, ok := toFloat(fields["input_tokens"]); ok {
			m.draftTokens.WithLabelValues(model, "input").Add(n)
		}
		if n, ok := toFloat(fields["output_tokens"]); ok {
			m.draftTokens.WithLabelValues(model, "output").Add(n)
		}
		if c, ok := toFloat(fields["cost_usd"]); ok {
			m.draftCost.WithLabelValues(model).Add(c)
		}
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
