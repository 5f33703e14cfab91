//go:build integration
// +build integration

package test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	agentauth "github.com/MrEthical07/agentauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationAuthorization(t *testing.T, client agentauth.UserTokenClient) (*agentauth.Authorization, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	auth, err := agentauth.New().
		WithRedis(rdb).
		WithTokenClient(client).
		WithHandlers(agentauth.AuthHandler{
			Name:           "graph",
			ConnectionName: "graph-connection",
			Auto:           true,
		}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(auth.Close)
	return auth, mr
}

func messageTurn(userID, text string) *agentauth.TurnContext {
	return &agentauth.TurnContext{
		Activity: &agentauth.Activity{
			Type:         agentauth.ActivityTypeMessage,
			ID:           "act-1",
			ChannelID:    "webchat",
			Text:         text,
			From:         &agentauth.ChannelAccount{ID: userID},
			Conversation: &agentauth.ConversationAccount{ID: "conv-1"},
			ServiceURL:   "https://channel.example",
		},
		Identity: &agentauth.ClaimsIdentity{AppID: "app-1"},
	}
}

func invokeTurn(t *testing.T, userID, name string, value any) *agentauth.TurnContext {
	t.Helper()

	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal invoke value: %v", err)
	}
	tc := messageTurn(userID, "")
	tc.Activity.Type = agentauth.ActivityTypeInvoke
	tc.Activity.Name = name
	tc.Activity.Value = raw
	return tc
}

// fixtureTokenClient accepts a single magic code and counts provider calls.
type fixtureTokenClient struct {
	mu         sync.Mutex
	acceptCode string

	getTokenCalls int
	exchangeCalls int
	signOutCalls  int
}

func (c *fixtureTokenClient) GetToken(_ context.Context, userID, connectionName, _ string, code string) (*agentauth.TokenResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getTokenCalls++
	if code == "" || code != c.acceptCode {
		return nil, nil
	}
	return &agentauth.TokenResponse{
		ConnectionName: connectionName,
		Token:          "token-" + userID,
	}, nil
}

func (c *fixtureTokenClient) ExchangeToken(_ context.Context, userID, connectionName, _ string, _ agentauth.TokenExchangeRequest) (*agentauth.TokenResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exchangeCalls++
	return &agentauth.TokenResponse{
		ConnectionName: connectionName,
		Token:          "sso-" + userID,
	}, nil
}

func (c *fixtureTokenClient) SignOut(context.Context, string, string, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signOutCalls++
	return nil
}

func (c *fixtureTokenClient) GetSignInResource(_ context.Context, state string) (*agentauth.SignInResource, error) {
	return &agentauth.SignInResource{
		SignInLink: "https://signin.example/start?state=" + state,
	}, nil
}
