package internaldefs

import (
	agentauth "github.com/MrEthical07/agentauth"
)

// CounterDef maps a flow-engine counter to its exported metric name.
type CounterDef struct {
	ID   agentauth.MetricID
	Name string
	Help string
}

// HistogramDef maps a flow-engine histogram to its exported metric name.
type HistogramDef struct {
	ID   agentauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: agentauth.MetricFlowBegin, Name: "agentauth_flow_begin_total", Help: "Sign-in flows started."},
	{ID: agentauth.MetricCachedTokenHit, Name: "agentauth_cached_token_hit_total", Help: "Begin requests satisfied by an existing provider-side token."},
	{ID: agentauth.MetricSignInCardIssued, Name: "agentauth_sign_in_card_issued_total", Help: "Consent cards issued."},
	{ID: agentauth.MetricFlowComplete, Name: "agentauth_flow_complete_total", Help: "Flows that obtained a token."},
	{ID: agentauth.MetricFlowFailure, Name: "agentauth_flow_failure_total", Help: "Flows that expired or exhausted their attempts."},
	{ID: agentauth.MetricMagicFormatRejected, Name: "agentauth_magic_format_rejected_total", Help: "Continuations rejected by the magic-code format gate."},
	{ID: agentauth.MetricMagicCodeRejected, Name: "agentauth_magic_code_rejected_total", Help: "Magic codes the provider rejected."},
	{ID: agentauth.MetricUnknownContinuation, Name: "agentauth_unknown_continuation_total", Help: "Continuations that matched no known shape."},
	{ID: agentauth.MetricTokenExchangeDedup, Name: "agentauth_token_exchange_dedup_total", Help: "Duplicate token-exchange deliveries suppressed."},
	{ID: agentauth.MetricSignOut, Name: "agentauth_sign_out_total", Help: "Sign-out operations."},
	{ID: agentauth.MetricOBOExchange, Name: "agentauth_obo_exchange_total", Help: "On-behalf-of token exchanges."},
}

var HistogramDefs = []HistogramDef{
	{ID: agentauth.MetricContinueLatency, Name: "agentauth_continue_latency_seconds", Help: "ContinueFlow latency histogram."},
}

// HistogramBounds are the upper bounds of the continuation-latency buckets,
// in seconds, matching the core histogram layout. The final bucket is +Inf.
var HistogramBounds = []string{
	"0.001",
	"0.005",
	"0.025",
	"0.1",
	"0.5",
	"2",
	"+Inf",
}

// HistogramBoundSuffix holds metric-name-safe forms of HistogramBounds.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_005",
	"0_025",
	"0_1",
	"0_5",
	"2",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed layout.
func NormalizeBuckets(raw []uint64) [7]uint64 {
	var out [7]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to cumulative counts.
func CumulativeBuckets(raw [7]uint64) [7]uint64 {
	var out [7]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
