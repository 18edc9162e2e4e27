// Package metrics records generation outcomes.
package metrics

import "time"

// Collector receives generation and request-limiting events.
type Collector interface {
	// RecordGeneration reports one call to the generator. outcome is
	// "solved" or "no_solution"; attempts is the number consumed.
	RecordGeneration(outcome string, attempts int, elapsed time.Duration)
	IncrementRateLimited(route string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

var _ Collector = (*NopMetrics)(nil)

func NewNop() *NopMetrics {
	return &NopMetrics{}
}

func (n *NopMetrics) RecordGeneration(_ string, _ int, _ time.Duration) {}

func (n *NopMetrics) IncrementRateLimited(_ string) {}
