// Package internal contains helpers that are intentionally private to
// agentauth.
//
// # Sub-packages
//
//   - audit — async audit event model and sink implementations
//   - metrics — lock-free counters and latency histograms
//
// # What this package must NOT do
//
//   - Export types that appear in the public agentauth API.
//   - Be imported by any package outside the agentauth module.
package internal
