package agentauth

import "context"

// UserTokenClient is the token-provider collaborator. Implementations talk
// to the real token service; this package only orchestrates the calls.
//
// GetToken and ExchangeToken return (nil, nil) when the provider holds no
// token for the user; a rejected magic code or exchange is not a Go error.
// Transport failures are returned as errors and propagated unchanged.
type UserTokenClient interface {
	GetToken(ctx context.Context, userID, connectionName, channelID, magicCode string) (*TokenResponse, error)
	ExchangeToken(ctx context.Context, userID, connectionName, channelID string, body TokenExchangeRequest) (*TokenResponse, error)
	SignOut(ctx context.Context, userID, connectionName, channelID string) error
	GetSignInResource(ctx context.Context, state string) (*SignInResource, error)
}

// OnBehalfOfExchanger is the optional capability used by
// [Authorization.ExchangeToken] to trade an exchangeable token for a
// downstream one. Token clients that cannot perform on-behalf-of exchange
// simply do not implement it.
type OnBehalfOfExchanger interface {
	AcquireTokenOnBehalfOf(ctx context.Context, connectionName string, scopes []string, assertion string) (*TokenResponse, error)
}
