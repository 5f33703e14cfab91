// Package agentauth implements the OAuth sign-in flow state machine used by
// conversational agents: per-user, per-channel, per-provider sign-in progress
// tracked across asynchronous turns, with magic-code, verify-state, and
// token-exchange continuations, retry/expiry limits, and transactional
// persistence of flow state between turns.
//
// The package is designed for concurrent server workloads: [Authorization]
// methods are safe to call from multiple goroutines after initialization
// through [Builder.Build]. Flow objects constructed inside a transaction are
// never shared across turns.
//
// # Architecture boundaries
//
// agentauth is the public surface. It exposes [Authorization], [AuthFlow],
// [FlowState], [FlowStorageClient], the [Storage] and [UserTokenClient]
// collaborator contracts, [Config], [Builder], and value types
// (FlowResponse, SignInResource, MetricsSnapshot, etc.). Internal
// coordination (audit dispatch and metrics) lives under internal/ and is
// never exported directly.
//
// # What this package must NOT do
//
//   - Render consent cards or route activities; callers own the HTTP and
//     channel surface and drive [Authorization.BeginOrContinueFlow] per turn.
//   - Acquire tokens itself; all token operations go through the
//     [UserTokenClient] collaborator.
//   - Persist state anywhere except through the [Storage] collaborator, and
//     only inside [Authorization.OpenFlow].
//
// # Persistence contract
//
// OpenFlow is the sole transaction boundary: flow state is loaded once per
// turn, mutated in memory, diffed against the snapshot taken at load time,
// and written back only when it changed. [AuthFlow] never touches storage.
package agentauth
