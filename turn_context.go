package agentauth

// ClaimsIdentity carries the requesting agent's identity claims as resolved
// by the hosting adapter. Only the app id is consumed here; it is embedded
// in the token exchange state so the provider can validate the requester.
type ClaimsIdentity struct {
	AppID string
}

// TurnContext is the per-turn view handed in by the routing layer: the
// triggering activity, the resolved agent identity, and the turn-scoped
// state bag shared with route handlers and sign-in callbacks.
type TurnContext struct {
	Activity  *Activity
	Identity  *ClaimsIdentity
	TurnState map[string]any
}

func (tc *TurnContext) channelID() string {
	if tc == nil || tc.Activity == nil {
		return ""
	}
	return tc.Activity.ChannelID
}

func (tc *TurnContext) userID() string {
	if tc == nil || tc.Activity == nil || tc.Activity.From == nil {
		return ""
	}
	return tc.Activity.From.ID
}

func (tc *TurnContext) appID() string {
	if tc == nil || tc.Identity == nil {
		return ""
	}
	return tc.Identity.AppID
}
