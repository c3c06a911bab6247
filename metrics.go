package contrastive

import (
	"sync"
)

// Result maps metric names to the scalar values of one forward pass.
// Every result contains MetricLoss; the remaining keys depend on the
// engine that produced it.
type Result map[string]float32

// Canonical metric names emitted by the loss engines.
const (
	MetricLoss        = "loss"
	MetricSimCLRLoss  = "simclr_loss"
	MetricImBYOLLoss  = "im_byol_loss"
	MetricContraLoss1 = "contra_loss_1"
	MetricContraLoss2 = "contra_loss_2"
	MetricCLIPAcc     = "clip_acc"

	// SIMCLRLoss-only keys.
	MetricSSLLoss = "ssl_loss"
	MetricSSLAcc  = "ssl_acc"
)

// MetricNames returns the stable set of keys an ACLIPLoss result carries,
// for metrics/logging collaborators that need to set up aggregation before
// the first step.
func MetricNames() []string {
	return []string{
		MetricLoss,
		MetricSimCLRLoss,
		MetricImBYOLLoss,
		MetricContraLoss1,
		MetricContraLoss2,
		MetricCLIPAcc,
	}
}

// Collector defines an interface for collecting per-step loss metrics.
// Implement this interface to integrate with monitoring systems.
//
// Cross-worker aggregation is the training loop's concern; a Collector
// only ever sees the results of its own engine instance.
type Collector interface {
	// RecordForward is called after each successful forward pass.
	RecordForward(result Result)
}

// NoopCollector is a no-op implementation of Collector.
// Use this when metrics collection is not needed.
type NoopCollector struct{}

// RecordForward implements Collector.
func (NoopCollector) RecordForward(Result) {}

// BasicCollector provides simple in-memory metrics collection: running
// means per metric name. Useful for debugging and smoke tests without
// external dependencies. Safe for concurrent use.
type BasicCollector struct {
	mu    sync.Mutex
	steps int
	sums  map[string]float64
}

// RecordForward implements Collector.
func (b *BasicCollector) RecordForward(result Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sums == nil {
		b.sums = make(map[string]float64, len(result))
	}
	b.steps++
	for name, v := range result {
		b.sums[name] += float64(v)
	}
}

// Steps returns the number of recorded forward passes.
func (b *BasicCollector) Steps() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.steps
}

// Mean returns the running mean of the named metric and whether the
// metric has been recorded at all.
func (b *BasicCollector) Mean(name string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sum, ok := b.sums[name]
	if !ok || b.steps == 0 {
		return 0, false
	}

	return sum / float64(b.steps), true
}

// Reset clears all recorded state.
func (b *BasicCollector) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.steps = 0
	b.sums = nil
}
