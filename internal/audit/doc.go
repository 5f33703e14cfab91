// Package audit implements async event dispatching for sign-in flow
// lifecycle operations.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Event] — structured audit record with timestamp, type, user, channel,
//     handler, flow tag, and metadata.
//
// The buffered async dispatcher that feeds sinks lives at the module root so
// it can share the public AuditConfig type.
package audit
