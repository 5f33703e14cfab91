package agentauth

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// exchangeableAudiencePrefix marks a token audience that can be traded via
// on-behalf-of exchange.
const exchangeableAudiencePrefix = "api://"

// SignInSuccessHandler is invoked exactly once when a flow reaches
// FlowComplete during BeginOrContinueFlow.
type SignInSuccessHandler func(ctx context.Context, tc *TurnContext, authHandlerID string)

// SignInFailureHandler is invoked exactly once when a flow reaches
// FlowFailure during BeginOrContinueFlow; errorTag carries the last
// continuation error, FlowErrorNone when the flow simply expired.
type SignInFailureHandler func(ctx context.Context, tc *TurnContext, authHandlerID string, errorTag FlowErrorTag)

// Authorization owns the configured auth handlers and mediates all flow
// access through the load-mutate-diff-write transaction in [OpenFlow].
// Instances are built once via [Builder.Build]; the handler map is
// immutable afterwards and safely shared across concurrent turns. Register
// callbacks before serving traffic.
type Authorization struct {
	config      Config
	storage     Storage
	tokenClient UserTokenClient
	handlers    map[string]AuthHandler
	order       []string
	audit       *auditDispatcher
	metrics     *Metrics
	now         func() time.Time

	// Single callback slot of each kind; a new registration replaces the
	// previous one.
	onSuccess SignInSuccessHandler
	onFailure SignInFailureHandler
}

// Close flushes and stops the audit dispatcher.
func (a *Authorization) Close() {
	if a == nil {
		return
	}
	if a.audit != nil {
		a.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// back-pressure.
func (a *Authorization) AuditDropped() uint64 {
	if a == nil {
		return 0
	}
	return a.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all flow metrics.
func (a *Authorization) MetricsSnapshot() MetricsSnapshot {
	if a == nil || a.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return a.metrics.Snapshot()
}

// OnSignInSuccess registers the success callback. Last registration wins.
func (a *Authorization) OnSignInSuccess(handler SignInSuccessHandler) {
	a.onSuccess = handler
}

// OnSignInFailure registers the failure callback. Last registration wins.
func (a *Authorization) OnSignInFailure(handler SignInFailureHandler) {
	a.onFailure = handler
}

// ResolveHandler returns the named handler, or the first registered handler
// when authHandlerID is empty. Unknown explicit ids fail with
// [ErrUnknownHandler].
func (a *Authorization) ResolveHandler(authHandlerID string) (AuthHandler, error) {
	handler, _, err := a.resolveHandler(authHandlerID)
	return handler, err
}

func (a *Authorization) resolveHandler(authHandlerID string) (AuthHandler, string, error) {
	if authHandlerID == "" {
		if len(a.order) == 0 {
			return AuthHandler{}, "", ErrNoHandlers
		}
		authHandlerID = a.order[0]
	}
	handler, ok := a.handlers[authHandlerID]
	if !ok {
		return AuthHandler{}, "", ErrUnknownHandler
	}
	return handler, authHandlerID, nil
}

// OpenFlow is the transaction boundary: load the flow state for the triple
// (or synthesize a fresh record), hand an [AuthFlow] bound to it to fn,
// then persist the outcome. A completed flow's record is deleted, any
// other mutation is written back, and an untouched state produces no
// storage write at all.
func (a *Authorization) OpenFlow(ctx context.Context, tc *TurnContext, authHandlerID string, fn func(flow *AuthFlow) error) error {
	handler, resolvedID, err := a.resolveHandler(authHandlerID)
	if err != nil {
		return err
	}
	client, err := NewFlowStorageClient(tc, a.storage)
	if err != nil {
		return err
	}

	loaded, err := client.Read(ctx, resolvedID)
	if err != nil {
		return err
	}
	state := loaded
	if state == nil {
		state = &FlowState{
			ChannelID:         client.channelID,
			UserID:            client.userID,
			AuthHandlerID:     resolvedID,
			ConnectionName:    handler.ConnectionName,
			Tag:               FlowNotStarted,
			AttemptsRemaining: a.config.Flow.MaxAttempts,
		}
	} else {
		// Persisted tags are never trusted: expiry and exhaustion are
		// recomputed before the flow sees the record.
		state.normalizeAt(a.now())
	}

	snapshot, err := encodeFlowState(state)
	if err != nil {
		return err
	}

	flow := newAuthFlow(state, handler, a.tokenClient, a.config.Flow, a.audit, a.metrics)
	if err := fn(flow); err != nil {
		return err
	}

	if state.Tag == FlowComplete {
		if loaded != nil {
			return client.Delete(ctx, resolvedID)
		}
		return nil
	}

	after, err := encodeFlowState(state)
	if err != nil {
		return err
	}
	if !bytes.Equal(snapshot, after) {
		return client.Write(ctx, state)
	}
	return nil
}

// BeginOrContinueFlow advances the sign-in flow by one turn and, once the
// transaction has committed, fires the matching terminal callback:
// FlowComplete → success, FlowFailure → failure, anything else → neither.
func (a *Authorization) BeginOrContinueFlow(ctx context.Context, tc *TurnContext, authHandlerID string) (*FlowResponse, error) {
	_, resolvedID, err := a.resolveHandler(authHandlerID)
	if err != nil {
		return nil, err
	}

	var response *FlowResponse
	err = a.OpenFlow(ctx, tc, resolvedID, func(flow *AuthFlow) error {
		r, flowErr := flow.BeginOrContinueFlow(ctx, tc)
		response = r
		return flowErr
	})
	if err != nil {
		return nil, err
	}

	switch response.FlowState.Tag {
	case FlowComplete:
		if a.onSuccess != nil {
			a.onSuccess(ctx, tc, resolvedID)
		}
	case FlowFailure:
		if a.onFailure != nil {
			a.onFailure(ctx, tc, resolvedID, response.ErrorTag)
		}
	}
	return response, nil
}

// GetToken returns the user's current provider-side token for the handler
// without driving the state machine; (nil, nil) when the user holds none.
func (a *Authorization) GetToken(ctx context.Context, tc *TurnContext, authHandlerID string) (*TokenResponse, error) {
	var token *TokenResponse
	err := a.OpenFlow(ctx, tc, authHandlerID, func(flow *AuthFlow) error {
		t, flowErr := flow.GetUserToken(ctx, tc)
		token = t
		return flowErr
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ExchangeToken performs an on-behalf-of exchange of the user's current
// token for the given scopes. The token's audience claim is decoded WITHOUT
// signature verification (routing, not trust; verification is the
// provider's job), and only audiences with the "api://" prefix are
// exchangeable. Everything else yields an empty response.
func (a *Authorization) ExchangeToken(ctx context.Context, tc *TurnContext, scopes []string, authHandlerID string) (*TokenResponse, error) {
	handler, resolvedID, err := a.resolveHandler(authHandlerID)
	if err != nil {
		return nil, err
	}

	token, err := a.GetToken(ctx, tc, resolvedID)
	if err != nil {
		return nil, err
	}
	if !token.HasToken() {
		return &TokenResponse{}, nil
	}

	audience, ok := tokenAudience(token.Token)
	if !ok || !strings.HasPrefix(audience, exchangeableAudiencePrefix) {
		return &TokenResponse{}, nil
	}

	if handler.OBOConnectionName == "" {
		return nil, ErrOBOConnectionRequired
	}
	exchanger, ok := a.tokenClient.(OnBehalfOfExchanger)
	if !ok {
		return nil, ErrOBONotSupported
	}

	exchanged, err := exchanger.AcquireTokenOnBehalfOf(ctx, handler.OBOConnectionName, scopes, token.Token)
	if err != nil {
		return nil, err
	}
	a.metrics.Inc(MetricOBOExchange)
	a.audit.Emit(ctx, AuditEvent{
		EventType: AuditOBOExchange,
		UserID:    tc.userID(),
		ChannelID: tc.channelID(),
		HandlerID: resolvedID,
		Success:   exchanged.HasToken(),
	})
	return exchanged, nil
}

// SignOut revokes the user's token and deletes the flow record for the
// named handler, or for every registered handler when authHandlerID is
// empty. Cleanup is best-effort across handlers: one failing handler does
// not stop the rest, and all failures are joined into the returned error.
func (a *Authorization) SignOut(ctx context.Context, tc *TurnContext, authHandlerID string) error {
	client, err := NewFlowStorageClient(tc, a.storage)
	if err != nil {
		return err
	}

	ids := a.order
	if authHandlerID != "" {
		if _, ok := a.handlers[authHandlerID]; !ok {
			return ErrUnknownHandler
		}
		ids = []string{authHandlerID}
	}

	var errs []error
	for _, id := range ids {
		handler := a.handlers[id]
		ok := true
		if err := a.tokenClient.SignOut(ctx, client.userID, handler.ConnectionName, client.channelID); err != nil {
			errs = append(errs, err)
			ok = false
		}
		if err := client.Delete(ctx, id); err != nil {
			errs = append(errs, err)
			ok = false
		}
		a.metrics.Inc(MetricSignOut)
		a.audit.Emit(ctx, AuditEvent{
			EventType: AuditSignOut,
			UserID:    client.userID,
			ChannelID: client.channelID,
			HandlerID: id,
			Success:   ok,
		})
	}
	return errors.Join(errs...)
}

// tokenAudience decodes the token payload without verifying its signature
// and returns the first audience claim.
func tokenAudience(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", false
	}
	audience, err := claims.GetAudience()
	if err != nil || len(audience) == 0 {
		return "", false
	}
	return audience[0], true
}
