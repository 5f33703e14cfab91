package agentauth

import (
	"io"

	internalaudit "github.com/MrEthical07/agentauth/internal/audit"
)

// Audit event types emitted by the flow engine.
const (
	// AuditFlowBegin records a fresh flow issuing a consent card.
	AuditFlowBegin = "flow_begin"
	// AuditCachedToken records a BeginFlow satisfied by an existing
	// provider-side token, with no card rendered.
	AuditCachedToken = "flow_cached_token"
	// AuditFlowComplete records a continuation that obtained a token.
	AuditFlowComplete = "flow_complete"
	// AuditFlowFailure records expiry or retry exhaustion.
	AuditFlowFailure = "flow_failure"
	// AuditContinueRejected records a continuation the provider or the
	// format gate rejected; the error field carries the FlowErrorTag.
	AuditContinueRejected = "flow_continue_rejected"
	// AuditTokenExchangeDedup records a duplicate token-exchange delivery
	// suppressed before any provider call.
	AuditTokenExchangeDedup = "token_exchange_dedup"
	// AuditSignOut records a provider sign-out plus record deletion.
	AuditSignOut = "sign_out"
	// AuditOBOExchange records an on-behalf-of exchange attempt.
	AuditOBOExchange = "obo_exchange"
)

// AuditEvent is a structured audit record emitted by the flow engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
