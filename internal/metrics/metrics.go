package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a specific counter or histogram in the flow engine.
type MetricID int

const (
	MetricFlowBegin MetricID = iota
	MetricCachedTokenHit
	MetricSignInCardIssued
	MetricFlowComplete
	MetricFlowFailure
	MetricMagicFormatRejected
	MetricMagicCodeRejected
	MetricUnknownContinuation
	MetricTokenExchangeDedup
	MetricSignOut
	MetricOBOExchange
	MetricContinueLatency

	MetricIDCount
)

// latencyBuckets are the upper bounds of the continuation-latency histogram.
// The final implicit bucket is +Inf.
var latencyBuckets = []time.Duration{
	time.Millisecond,
	5 * time.Millisecond,
	25 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	2 * time.Second,
}

// Config controls which instruments are active.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds atomic counters and the optional latency histogram.
type Metrics struct {
	enabled bool
	latency bool

	counters  [MetricIDCount]atomic.Uint64
	histogram [MetricIDCount][]atomic.Uint64
}

// New creates a Metrics instance. When cfg.Enabled is false all operations
// are no-ops.
func New(cfg Config) *Metrics {
	m := &Metrics{
		enabled: cfg.Enabled,
		latency: cfg.Enabled && cfg.EnableLatency,
	}
	if m.latency {
		m.histogram[MetricContinueLatency] = make([]atomic.Uint64, len(latencyBuckets)+1)
	}
	return m
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Observe records a latency sample in the histogram for id.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.latency || id < 0 || id >= MetricIDCount {
		return
	}
	buckets := m.histogram[id]
	if buckets == nil {
		return
	}
	slot := len(latencyBuckets)
	for i, bound := range latencyBuckets {
		if d <= bound {
			slot = i
			break
		}
	}
	buckets[slot].Add(1)
}

// Snapshot is a point-in-time deep copy of all metrics.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// Snapshot copies every counter and histogram.
func (m *Metrics) Snapshot() Snapshot {
	out := Snapshot{
		Counters:   make(map[MetricID]uint64, MetricIDCount),
		Histograms: make(map[MetricID][]uint64),
	}
	if m == nil || !m.enabled {
		return out
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if v := m.counters[id].Load(); v != 0 {
			out.Counters[id] = v
		}
		if buckets := m.histogram[id]; buckets != nil {
			copied := make([]uint64, len(buckets))
			for i := range buckets {
				copied[i] = buckets[i].Load()
			}
			out.Histograms[id] = copied
		}
	}
	return out
}
