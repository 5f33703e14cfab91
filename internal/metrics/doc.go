// Package metrics implements lock-free counters and a latency histogram for
// the sign-in flow engine.
//
// # Components
//
//   - [Metrics] — atomic counter array indexed by [MetricID], plus an
//     optional continuation-latency histogram.
//   - [Snapshot] — point-in-time deep copy safe to hand to callers.
//
// When disabled, every operation is a no-op; the hot path never allocates.
package metrics
