package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics exposes the engine's decision and escalation counters. A nil
// Registerer yields unregistered (but still usable) collectors, which keeps
// per-test engines from colliding on the default registry.
type metrics struct {
	decisions   *prometheus.CounterVec
	escalations *prometheus.CounterVec
	evictions   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by outcome.",
		}, []string{"outcome"}),
		escalations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "escalations_total",
			Help:      "Reputation escalations by kind.",
		}, []string{"kind"}),
		evictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warden",
			Name:      "sweep_evictions_total",
			Help:      "Records evicted by the background sweep, by store.",
		}, []string{"store"}),
	}
}
