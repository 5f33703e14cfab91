package agentauth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuthFlow drives one user's sign-in state machine for one handler. It is
// constructed fresh inside every [Authorization.OpenFlow] transaction,
// mutates the bound [FlowState] in memory, and never touches storage
// itself; it does not outlive the transaction.
type AuthFlow struct {
	state       *FlowState
	handler     AuthHandler
	tokenClient UserTokenClient

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time

	// seenExchangeIDs dedupes signin/tokenExchange deliveries within this
	// instance only; duplicate deliveries that span turns race as
	// last-writer-wins at the storage layer.
	seenExchangeIDs map[string]struct{}

	audit   *auditDispatcher
	metrics *Metrics
}

func newAuthFlow(state *FlowState, handler AuthHandler, tokenClient UserTokenClient, cfg FlowConfig, audit *auditDispatcher, metrics *Metrics) *AuthFlow {
	return &AuthFlow{
		state:           state,
		handler:         handler,
		tokenClient:     tokenClient,
		ttl:             cfg.TTL,
		maxAttempts:     cfg.MaxAttempts,
		now:             time.Now,
		seenExchangeIDs: make(map[string]struct{}),
		audit:           audit,
		metrics:         metrics,
	}
}

// State exposes the flow state bound to this instance.
func (f *AuthFlow) State() *FlowState {
	return f.state
}

// BeginOrContinueFlow is the single per-turn entry point: it resumes an
// active flow and starts a fresh one otherwise.
func (f *AuthFlow) BeginOrContinueFlow(ctx context.Context, tc *TurnContext) (*FlowResponse, error) {
	if f.state.activeAt(f.now()) {
		return f.ContinueFlow(ctx, tc)
	}
	return f.BeginFlow(ctx, tc)
}

// BeginFlow resets the record and starts a new sign-in. When the provider
// already holds a valid token for the user (a prior, unrelated session),
// it is returned immediately with no card and no sign-in-resource request.
func (f *AuthFlow) BeginFlow(ctx context.Context, tc *TurnContext) (*FlowResponse, error) {
	*f.state = FlowState{
		ChannelID:         tc.channelID(),
		UserID:            tc.userID(),
		AuthHandlerID:     f.handler.Name,
		ConnectionName:    f.handler.ConnectionName,
		Tag:               FlowNotStarted,
		AttemptsRemaining: f.maxAttempts,
	}

	token, err := f.tokenClient.GetToken(ctx, f.state.UserID, f.state.ConnectionName, f.state.ChannelID, "")
	if err != nil {
		return nil, err
	}
	if token.HasToken() {
		f.state.Tag = FlowComplete
		f.metrics.Inc(MetricCachedTokenHit)
		f.emitAudit(ctx, AuditCachedToken, true, FlowErrorNone)
		return &FlowResponse{FlowState: f.state, TokenResponse: token}, nil
	}

	exchangeState := TokenExchangeState{
		ID:             uuid.NewString(),
		ConnectionName: f.state.ConnectionName,
		Conversation:   tc.Activity.Reference(),
		RelatesTo:      tc.Activity.RelatesTo,
		MsAppID:        tc.appID(),
	}
	encoded, err := exchangeState.Encode()
	if err != nil {
		return nil, err
	}
	resource, err := f.tokenClient.GetSignInResource(ctx, encoded)
	if err != nil {
		return nil, err
	}

	f.state.Tag = FlowBegin
	f.state.FlowExpires = f.now().Add(f.ttl).Unix()
	f.state.AttemptsRemaining = f.maxAttempts
	f.state.ContinuationActivity = tc.Activity

	f.metrics.Inc(MetricFlowBegin)
	f.metrics.Inc(MetricSignInCardIssued)
	f.emitAudit(ctx, AuditFlowBegin, true, FlowErrorNone)

	return &FlowResponse{FlowState: f.state, SignInResource: resource}, nil
}

// ContinueFlow processes exactly one continuation. A dead flow (expired or
// exhausted) fails fast without any provider call. Otherwise the activity
// is classified once; first match wins, anything else is FlowErrorUnknown.
func (f *AuthFlow) ContinueFlow(ctx context.Context, tc *TurnContext) (*FlowResponse, error) {
	started := f.now()
	defer func() {
		f.metrics.Observe(MetricContinueLatency, f.now().Sub(started))
	}()

	kind := classifyContinuation(tc.Activity)

	// Duplicate token-exchange deliveries are absorbed before any liveness
	// or provider decision: channels retry the invoke even after the flow
	// completed, and a retry must never disturb the record.
	var (
		exchange    tokenExchangeValue
		exchangeErr error
	)
	if kind == continuationTokenExchange {
		exchangeErr = json.Unmarshal(tc.Activity.Value, &exchange)
		if exchangeErr == nil {
			if _, seen := f.seenExchangeIDs[exchange.ID]; seen {
				f.metrics.Inc(MetricTokenExchangeDedup)
				f.emitAudit(ctx, AuditTokenExchangeDedup, true, FlowErrorNone)
				return &FlowResponse{FlowState: f.state, TokenResponse: &TokenResponse{}}, nil
			}
		}
	}

	if !f.state.activeAt(started) {
		// Only an in-flight flow can expire or exhaust into Failure.
		// Terminal tags stay exactly as they are.
		if f.state.Tag == FlowBegin || f.state.Tag == FlowContinue {
			f.state.Tag = FlowFailure
			f.metrics.Inc(MetricFlowFailure)
			f.emitAudit(ctx, AuditFlowFailure, false, FlowErrorNone)
		}
		return &FlowResponse{FlowState: f.state}, nil
	}

	f.state.Tag = FlowContinue

	switch kind {
	case continuationMessage:
		return f.redeemMagicCode(ctx, tc.Activity.Text)

	case continuationVerifyState:
		var value verifyStateValue
		if err := json.Unmarshal(tc.Activity.Value, &value); err != nil {
			return f.recordFailure(ctx, FlowErrorUnknown), nil
		}
		return f.redeemMagicCode(ctx, value.State)

	case continuationTokenExchange:
		if exchangeErr != nil {
			return f.recordFailure(ctx, FlowErrorUnknown), nil
		}
		f.seenExchangeIDs[exchange.ID] = struct{}{}

		token, err := f.tokenClient.ExchangeToken(ctx, f.state.UserID, f.state.ConnectionName, f.state.ChannelID, TokenExchangeRequest{Token: exchange.Token})
		if err != nil {
			return nil, err
		}
		if token.HasToken() {
			return f.complete(ctx, token), nil
		}
		return f.recordFailure(ctx, FlowErrorMagicCode), nil

	default:
		return f.recordFailure(ctx, FlowErrorUnknown), nil
	}
}

// GetUserToken queries the provider for the user's current token without
// driving the state machine.
func (f *AuthFlow) GetUserToken(ctx context.Context, tc *TurnContext) (*TokenResponse, error) {
	return f.tokenClient.GetToken(ctx, tc.userID(), f.handler.ConnectionName, tc.channelID(), "")
}

// SignOut revokes the user's token for this connection. Deleting the flow
// record is the transaction owner's job, not this instance's.
func (f *AuthFlow) SignOut(ctx context.Context, tc *TurnContext) error {
	return f.tokenClient.SignOut(ctx, tc.userID(), f.handler.ConnectionName, tc.channelID())
}

func (f *AuthFlow) redeemMagicCode(ctx context.Context, code string) (*FlowResponse, error) {
	if !isMagicCode(code) {
		// Format errors are free retries: no provider call, no attempt cost.
		f.metrics.Inc(MetricMagicFormatRejected)
		f.emitAudit(ctx, AuditContinueRejected, false, FlowErrorMagicFormat)
		return &FlowResponse{FlowState: f.state, ErrorTag: FlowErrorMagicFormat}, nil
	}

	token, err := f.tokenClient.GetToken(ctx, f.state.UserID, f.state.ConnectionName, f.state.ChannelID, code)
	if err != nil {
		return nil, err
	}
	if token.HasToken() {
		return f.complete(ctx, token), nil
	}
	return f.recordFailure(ctx, FlowErrorMagicCode), nil
}

func (f *AuthFlow) complete(ctx context.Context, token *TokenResponse) *FlowResponse {
	f.state.Tag = FlowComplete
	f.metrics.Inc(MetricFlowComplete)
	f.emitAudit(ctx, AuditFlowComplete, true, FlowErrorNone)
	return &FlowResponse{FlowState: f.state, TokenResponse: token}
}

func (f *AuthFlow) recordFailure(ctx context.Context, tag FlowErrorTag) *FlowResponse {
	f.state.AttemptsRemaining--
	switch tag {
	case FlowErrorMagicCode:
		f.metrics.Inc(MetricMagicCodeRejected)
	case FlowErrorUnknown:
		f.metrics.Inc(MetricUnknownContinuation)
	}
	f.emitAudit(ctx, AuditContinueRejected, false, tag)

	if f.state.ReachedMaxRetries() {
		f.state.Tag = FlowFailure
		f.metrics.Inc(MetricFlowFailure)
		f.emitAudit(ctx, AuditFlowFailure, false, tag)
	}
	return &FlowResponse{FlowState: f.state, ErrorTag: tag}
}

func (f *AuthFlow) emitAudit(ctx context.Context, eventType string, success bool, tag FlowErrorTag) {
	if f.audit == nil {
		return
	}
	event := AuditEvent{
		EventType: eventType,
		UserID:    f.state.UserID,
		ChannelID: f.state.ChannelID,
		HandlerID: f.state.AuthHandlerID,
		FlowTag:   f.state.Tag.String(),
		Success:   success,
	}
	if tag != FlowErrorNone {
		event.Error = tag.String()
	}
	f.audit.Emit(ctx, event)
}
