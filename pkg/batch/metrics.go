package batch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ha1tch/fsmlab/pkg/fsm"
)

// Metrics holds the batch runner's prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	Evaluations *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fsmlab_batch_evaluations_total",
				Help: "Strings evaluated by batch runs, by automaton type and outcome",
			},
			[]string{"type", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fsmlab_batch_duration_seconds",
				Help:    "Duration of complete batch runs",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Evaluations, m.Duration)
	}
	return m
}

func (m *Metrics) observe(typ fsm.Type, r Result) {
	if m == nil {
		return
	}
	outcome := "rejected"
	switch {
	case r.Err != "":
		outcome = "error"
	case r.Accepted:
		outcome = "accepted"
	}
	m.Evaluations.WithLabelValues(string(typ), outcome).Inc()
}

func (m *Metrics) finish(typ fsm.Type, d time.Duration) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(string(typ)).Observe(d.Seconds())
}
