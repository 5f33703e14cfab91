package agentauth

import (
	internalmetrics "github.com/MrEthical07/agentauth/internal/metrics"
)

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricFlowBegin counts fresh flows that issued a consent card.
	MetricFlowBegin = MetricID(internalmetrics.MetricFlowBegin)
	// MetricCachedTokenHit counts BeginFlow calls satisfied by an existing
	// provider-side token.
	MetricCachedTokenHit = MetricID(internalmetrics.MetricCachedTokenHit)
	// MetricSignInCardIssued counts sign-in resources requested.
	MetricSignInCardIssued = MetricID(internalmetrics.MetricSignInCardIssued)
	// MetricFlowComplete counts flows that obtained a token.
	MetricFlowComplete = MetricID(internalmetrics.MetricFlowComplete)
	// MetricFlowFailure counts flows that expired or exhausted retries.
	MetricFlowFailure = MetricID(internalmetrics.MetricFlowFailure)
	// MetricMagicFormatRejected counts continuations rejected by the
	// six-digit format gate (free retries).
	MetricMagicFormatRejected = MetricID(internalmetrics.MetricMagicFormatRejected)
	// MetricMagicCodeRejected counts well-formed credentials the provider
	// rejected (each costs an attempt).
	MetricMagicCodeRejected = MetricID(internalmetrics.MetricMagicCodeRejected)
	// MetricUnknownContinuation counts activities matching no continuation shape.
	MetricUnknownContinuation = MetricID(internalmetrics.MetricUnknownContinuation)
	// MetricTokenExchangeDedup counts duplicate token-exchange deliveries
	// suppressed before any provider call.
	MetricTokenExchangeDedup = MetricID(internalmetrics.MetricTokenExchangeDedup)
	// MetricSignOut counts sign-out operations per handler.
	MetricSignOut = MetricID(internalmetrics.MetricSignOut)
	// MetricOBOExchange counts on-behalf-of exchanges performed.
	MetricOBOExchange = MetricID(internalmetrics.MetricOBOExchange)
	// MetricContinueLatency is the continuation-latency histogram.
	MetricContinueLatency = MetricID(internalmetrics.MetricContinueLatency)
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
