package agentauth

import "encoding/json"

// Activity type and invoke name discriminators consumed by the flow.
const (
	// ActivityTypeMessage is a fire-and-forget user message.
	ActivityTypeMessage = "message"
	// ActivityTypeInvoke is a synchronous, typed request/response activity.
	ActivityTypeInvoke = "invoke"

	// InvokeNameVerifyState delivers the magic code via the channel instead
	// of the user typing it back.
	InvokeNameVerifyState = "signin/verifyState"
	// InvokeNameTokenExchange delivers a single-sign-on token exchange request.
	InvokeNameTokenExchange = "signin/tokenExchange"
)

// ChannelAccount identifies a conversation participant on a channel.
type ChannelAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// ConversationReference addresses a point in a conversation so that a later
// activity can be routed back to it.
type ConversationReference struct {
	ActivityID   string               `json:"activityId,omitempty"`
	User         *ChannelAccount      `json:"user,omitempty"`
	Agent        *ChannelAccount      `json:"agent,omitempty"`
	Conversation *ConversationAccount `json:"conversation,omitempty"`
	ChannelID    string               `json:"channelId,omitempty"`
	ServiceURL   string               `json:"serviceUrl,omitempty"`
}

// Activity is the wire-level activity payload. Only the fields the sign-in
// flow reads are modeled; everything else rides along in channels' own
// schemas and never enters this package.
type Activity struct {
	Type         string                 `json:"type,omitempty"`
	ID           string                 `json:"id,omitempty"`
	ChannelID    string                 `json:"channelId,omitempty"`
	ServiceURL   string                 `json:"serviceUrl,omitempty"`
	Text         string                 `json:"text,omitempty"`
	Name         string                 `json:"name,omitempty"`
	Value        json.RawMessage        `json:"value,omitempty"`
	From         *ChannelAccount        `json:"from,omitempty"`
	Recipient    *ChannelAccount        `json:"recipient,omitempty"`
	Conversation *ConversationAccount   `json:"conversation,omitempty"`
	RelatesTo    *ConversationReference `json:"relatesTo,omitempty"`
}

// Reference builds the conversation reference addressing this activity.
func (a *Activity) Reference() *ConversationReference {
	if a == nil {
		return nil
	}
	return &ConversationReference{
		ActivityID:   a.ID,
		User:         a.From,
		Agent:        a.Recipient,
		Conversation: a.Conversation,
		ChannelID:    a.ChannelID,
		ServiceURL:   a.ServiceURL,
	}
}

// verifyStateValue is the payload of a signin/verifyState invoke.
type verifyStateValue struct {
	State string `json:"state"`
}

// tokenExchangeValue is the payload of a signin/tokenExchange invoke. ID is
// the channel-assigned request id used for duplicate-delivery protection.
type tokenExchangeValue struct {
	ID             string `json:"id"`
	ConnectionName string `json:"connectionName"`
	Token          string `json:"token"`
}

// continuationKind is the closed classification of an incoming activity,
// computed once per continuation. First match wins; everything else is
// continuationOther.
type continuationKind uint8

const (
	continuationMessage continuationKind = iota
	continuationVerifyState
	continuationTokenExchange
	continuationOther
)

func classifyContinuation(a *Activity) continuationKind {
	if a == nil {
		return continuationOther
	}
	switch {
	case a.Type == ActivityTypeMessage:
		return continuationMessage
	case a.Type == ActivityTypeInvoke && a.Name == InvokeNameVerifyState:
		return continuationVerifyState
	case a.Type == ActivityTypeInvoke && a.Name == InvokeNameTokenExchange:
		return continuationTokenExchange
	default:
		return continuationOther
	}
}

// isMagicCode reports whether text is exactly six base-10 digits. Anything
// else is a format error and is never attempted against the provider.
func isMagicCode(text string) bool {
	if len(text) != 6 {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
