package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus. Metrics are
// registered on first use.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	generations *prometheus.CounterVec
	attempts    *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
	rateLimited *prometheus.CounterVec
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a collector registering on reg (the default
// registerer if nil) under namespace ("groups" if empty).
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "groups"
	}
	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.generations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "generator",
			Name:      "runs_total",
			Help:      "Total generation runs by outcome (solved, no_solution).",
		}, []string{"outcome"})

		p.attempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "generator",
			Name:      "attempts",
			Help:      "Placement attempts consumed per run.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"outcome"})

		p.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "generator",
			Name:      "duration_seconds",
			Help:      "Wall time of generation runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2.5, 10), // 0.5ms .. ~1.9s
		}, []string{"outcome"})

		p.rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}, []string{"route"})

		p.reg.MustRegister(p.generations)
		p.reg.MustRegister(p.attempts)
		p.reg.MustRegister(p.duration)
		p.reg.MustRegister(p.rateLimited)
	})
}

func (p *PrometheusCollector) RecordGeneration(outcome string, attempts int, elapsed time.Duration) {
	p.ensureRegistered()
	p.generations.WithLabelValues(outcome).Inc()
	p.attempts.WithLabelValues(outcome).Observe(float64(attempts))
	p.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (p *PrometheusCollector) IncrementRateLimited(route string) {
	p.ensureRegistered()
	p.rateLimited.WithLabelValues(route).Inc()
}
