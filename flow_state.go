package agentauth

import "time"

// FlowTag is the sign-in state machine state:
// NOT_STARTED → BEGIN → CONTINUE → {COMPLETE | FAILURE}.
// Complete and Failure are terminal for the triple until a fresh BeginFlow
// overwrites the record.
type FlowTag uint8

const (
	// FlowNotStarted is the tag of a record that has never begun a flow.
	FlowNotStarted FlowTag = iota
	// FlowBegin means the consent card has been issued and no continuation
	// has arrived yet.
	FlowBegin
	// FlowContinue means at least one continuation has been processed and
	// the flow is still waiting for a valid credential.
	FlowContinue
	// FlowComplete means a valid token was obtained.
	FlowComplete
	// FlowFailure means the flow expired or exhausted its attempts.
	FlowFailure
)

// String describes the tag for audit records and test output.
func (t FlowTag) String() string {
	switch t {
	case FlowNotStarted:
		return "not_started"
	case FlowBegin:
		return "begin"
	case FlowContinue:
		return "continue"
	case FlowComplete:
		return "complete"
	case FlowFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// FlowErrorTag classifies a recoverable continuation error. These are
// surfaced in [FlowResponse], never raised as Go errors.
type FlowErrorTag uint8

const (
	// FlowErrorNone means the continuation did not fail.
	FlowErrorNone FlowErrorTag = iota
	// FlowErrorMagicFormat means the supplied code was not six digits. The
	// provider is never called and no retry attempt is consumed.
	FlowErrorMagicFormat
	// FlowErrorMagicCode means the provider rejected a well-formed
	// credential. Costs one retry attempt.
	FlowErrorMagicCode
	// FlowErrorUnknown means the activity matched none of the continuation
	// shapes. Costs one retry attempt.
	FlowErrorUnknown
)

// String describes the error tag for audit records and test output.
func (t FlowErrorTag) String() string {
	switch t {
	case FlowErrorNone:
		return "none"
	case FlowErrorMagicFormat:
		return "magic_format"
	case FlowErrorMagicCode:
		return "magic_code"
	case FlowErrorUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// FlowState is one user's sign-in progress for one provider connection,
// persisted between turns. Exactly one record exists per
// (channel id, user id, auth handler id) triple: created on first
// BeginFlow, overwritten on every transition, deleted on sign-out and on
// completion.
type FlowState struct {
	ChannelID      string
	UserID         string
	AuthHandlerID  string
	ConnectionName string

	Tag FlowTag
	// AttemptsRemaining is decremented on every continuation that costs an
	// attempt; zero means exhausted.
	AttemptsRemaining int
	// FlowExpires is the absolute expiry as unix seconds. Zero means the
	// flow has not started.
	FlowExpires int64

	// ContinuationActivity is the activity that triggered sign-in, replayed
	// by the caller once sign-in completes.
	ContinuationActivity *Activity
}

// IsExpired reports whether the flow deadline has passed.
func (s *FlowState) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *FlowState) expiredAt(now time.Time) bool {
	return s.FlowExpires != 0 && now.Unix() >= s.FlowExpires
}

// ReachedMaxRetries reports whether the flow has no attempts left.
func (s *FlowState) ReachedMaxRetries() bool {
	return s.AttemptsRemaining <= 0
}

// IsActive reports whether the flow can accept a continuation.
func (s *FlowState) IsActive() bool {
	return s.activeAt(time.Now())
}

func (s *FlowState) activeAt(now time.Time) bool {
	if s.Tag != FlowBegin && s.Tag != FlowContinue {
		return false
	}
	return !s.expiredAt(now) && !s.ReachedMaxRetries()
}

// normalizeAt recomputes expiry and exhaustion after a load. Persisted tags
// are never trusted: a record that claims to be in-flight but is expired or
// exhausted is demoted to Failure.
func (s *FlowState) normalizeAt(now time.Time) {
	if s.Tag != FlowBegin && s.Tag != FlowContinue {
		return
	}
	if s.expiredAt(now) || s.ReachedMaxRetries() {
		s.Tag = FlowFailure
	}
}

// FlowResponse is the outcome of one BeginFlow/ContinueFlow turn: the
// resulting state, a recoverable error classification, the token when the
// flow completed, and the sign-in resource when a consent card must be
// rendered.
type FlowResponse struct {
	FlowState      *FlowState
	ErrorTag       FlowErrorTag
	TokenResponse  *TokenResponse
	SignInResource *SignInResource
}
