package agentauth

import (
	"encoding/base64"
	"encoding/json"
)

// TokenResponse is the opaque token DTO returned by the token provider.
// A nil or zero-value response means no token is available.
type TokenResponse struct {
	ConnectionName string   `json:"connectionName,omitempty"`
	Token          string   `json:"token,omitempty"`
	Expiration     string   `json:"expiration,omitempty"`
	Scopes         []string `json:"scopes,omitempty"`
}

// HasToken reports whether the response carries a usable token.
func (t *TokenResponse) HasToken() bool {
	return t != nil && t.Token != ""
}

// TokenExchangeResource describes the single-sign-on exchange endpoint a
// channel can use instead of showing the consent card.
type TokenExchangeResource struct {
	ID         string `json:"id,omitempty"`
	URI        string `json:"uri,omitempty"`
	ProviderID string `json:"providerId,omitempty"`
}

// TokenPostResource describes the direct-post completion endpoint.
type TokenPostResource struct {
	SasURL string `json:"sasUrl,omitempty"`
}

// SignInResource is everything the routing layer needs to render a consent
// card: the sign-in link plus the channel-side exchange/post resources.
type SignInResource struct {
	SignInLink            string                 `json:"signInLink,omitempty"`
	TokenExchangeResource *TokenExchangeResource `json:"tokenExchangeResource,omitempty"`
	TokenPostResource     *TokenPostResource     `json:"tokenPostResource,omitempty"`
}

// TokenExchangeRequest is the raw exchange payload forwarded to the token
// provider during a signin/tokenExchange continuation.
type TokenExchangeRequest struct {
	URI   string `json:"uri,omitempty"`
	Token string `json:"token,omitempty"`
}

// TokenExchangeState is encoded into the sign-in resource request so the
// provider can route the eventual completion back to this conversation.
type TokenExchangeState struct {
	ID             string                 `json:"id"`
	ConnectionName string                 `json:"connectionName"`
	Conversation   *ConversationReference `json:"conversation,omitempty"`
	RelatesTo      *ConversationReference `json:"relatesTo,omitempty"`
	MsAppID        string                 `json:"msAppId,omitempty"`
}

// Encode serializes the state as base64url JSON, the form the provider's
// sign-in endpoint expects.
func (s TokenExchangeState) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(data), nil
}
