package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFallback = "fallback"
	OutcomeUpstream = "upstream_error"
	OutcomeInternal = "internal_error"
)

type Metrics struct {
	generationResults *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
}

// New registers the generation collectors on reg. A nil reg gives collectors
// that are never exported, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		generationResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "generation_results_total",
				Help: "Generation requests by route and outcome.",
			},
			[]string{"route", "outcome"},
		),
		completionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "completion_latency_seconds",
				Help:    "The latency of completion service calls.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"route"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.generationResults, m.completionLatency)
	}
	return m
}

func (m *Metrics) ObserveGeneration(route, outcome string) {
	m.generationResults.WithLabelValues(route, outcome).Inc()
}

func (m *Metrics) ObserveCompletion(route string, started time.Time) {
	m.completionLatency.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

func (m *Metrics) GenerationCount(route, outcome string) float64 {
	c, err := m.generationResults.GetMetricWithLabelValues(route, outcome)
	if err != nil {
		return 0
	}
	return counterValue(c)
}

func counterValue(c prometheus.Counter) float64 {
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		return 0
	}
	return pb.GetCounter().GetValue()
}
