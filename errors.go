package agentauth

import "errors"

var (
	// ErrMissingIdentity is returned when the incoming activity lacks a
	// channel id or a from id. Checked before any storage or provider access.
	ErrMissingIdentity = errors.New("activity missing channel id or user id")
	// ErrUnknownHandler is returned when an explicitly named auth handler
	// is not registered.
	ErrUnknownHandler = errors.New("unknown auth handler")
	// ErrNoHandlers is returned when no auth handler is configured.
	ErrNoHandlers = errors.New("no auth handlers configured")
	// ErrDuplicateHandler is returned when two configured handlers share a name.
	ErrDuplicateHandler = errors.New("duplicate auth handler name")
	// ErrStorageRequired is returned by Build when no flow storage is configured.
	ErrStorageRequired = errors.New("flow storage required")
	// ErrTokenClientRequired is returned by Build when no token client is configured.
	ErrTokenClientRequired = errors.New("user token client required")
	// ErrStorageUnavailable wraps backend failures from the flow record store.
	ErrStorageUnavailable = errors.New("flow storage backend unavailable")
	// ErrFlowRecordInvalid is returned when a persisted flow record cannot
	// be decoded (unknown version or truncated payload).
	ErrFlowRecordInvalid = errors.New("invalid flow record")
	// ErrOBOConnectionRequired is returned when a token is exchangeable but
	// the handler has no on-behalf-of connection configured.
	ErrOBOConnectionRequired = errors.New("obo connection not configured")
	// ErrOBONotSupported is returned when the configured token client does
	// not implement [OnBehalfOfExchanger].
	ErrOBONotSupported = errors.New("token client does not support obo exchange")
)
