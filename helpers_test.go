package agentauth

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

// mockTokenClient is an in-memory token provider that counts calls so tests
// can assert exactly when the provider is (not) consulted.
type mockTokenClient struct {
	mu sync.Mutex

	// cached maps "user|connection" to a token returned for empty magic codes.
	cached map[string]*TokenResponse
	// acceptCode is the one magic code the provider accepts; all other
	// well-formed codes are rejected with (nil, nil).
	acceptCode string
	// exchangeResponse is returned by ExchangeToken when set.
	exchangeResponse *TokenResponse
	signInResource   *SignInResource
	oboResponse      *TokenResponse

	getTokenErr error
	signOutErr  error

	getTokenCalls       int
	magicCodeCalls      int
	exchangeCalls       int
	signOutCalls        int
	signInResourceCalls int
	oboCalls            int
}

func newMockTokenClient() *mockTokenClient {
	return &mockTokenClient{
		cached: make(map[string]*TokenResponse),
		signInResource: &SignInResource{
			SignInLink: "https://signin.example/start",
			TokenExchangeResource: &TokenExchangeResource{
				ID:  "exch-1",
				URI: "api://signin.example/resource",
			},
		},
	}
}

func (m *mockTokenClient) putCachedToken(userID, connectionName string, token *TokenResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached[userID+"|"+connectionName] = token
}

func (m *mockTokenClient) GetToken(_ context.Context, userID, connectionName, _ string, magicCode string) (*TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getTokenCalls++
	if m.getTokenErr != nil {
		return nil, m.getTokenErr
	}
	if magicCode == "" {
		return m.cached[userID+"|"+connectionName], nil
	}
	m.magicCodeCalls++
	if magicCode == m.acceptCode {
		return &TokenResponse{ConnectionName: connectionName, Token: "token-" + magicCode}, nil
	}
	return nil, nil
}

func (m *mockTokenClient) ExchangeToken(_ context.Context, _, _, _ string, _ TokenExchangeRequest) (*TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchangeCalls++
	return m.exchangeResponse, nil
}

func (m *mockTokenClient) SignOut(_ context.Context, userID, connectionName, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signOutCalls++
	delete(m.cached, userID+"|"+connectionName)
	return m.signOutErr
}

func (m *mockTokenClient) GetSignInResource(_ context.Context, _ string) (*SignInResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signInResourceCalls++
	return m.signInResource, nil
}

func (m *mockTokenClient) AcquireTokenOnBehalfOf(_ context.Context, _ string, _ []string, _ string) (*TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oboCalls++
	if m.oboResponse != nil {
		return m.oboResponse, nil
	}
	return &TokenResponse{Token: "obo-token"}, nil
}

// countingStorage wraps a Storage and counts operations so tests can assert
// the write-suppression contract.
type countingStorage struct {
	inner   Storage
	mu      sync.Mutex
	reads   int
	writes  int
	deletes int
}

func newCountingStorage() *countingStorage {
	return &countingStorage{inner: NewMemoryStorage()}
}

func (s *countingStorage) Read(ctx context.Context, keys []string) (map[string]*FlowState, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.inner.Read(ctx, keys)
}

func (s *countingStorage) Write(ctx context.Context, changes map[string]*FlowState) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return s.inner.Write(ctx, changes)
}

func (s *countingStorage) Delete(ctx context.Context, keys []string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.inner.Delete(ctx, keys)
}

func messageTurn(text string) *TurnContext {
	return &TurnContext{
		Activity: &Activity{
			Type:         ActivityTypeMessage,
			ID:           "act-1",
			ChannelID:    "webchat",
			Text:         text,
			From:         &ChannelAccount{ID: "u1", Name: "Alice"},
			Recipient:    &ChannelAccount{ID: "bot-1"},
			Conversation: &ConversationAccount{ID: "conv-1"},
			ServiceURL:   "https://channel.example",
		},
		Identity:  &ClaimsIdentity{AppID: "app-1"},
		TurnState: map[string]any{},
	}
}

func invokeTurn(t *testing.T, name string, value any) *TurnContext {
	t.Helper()

	raw, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal invoke value: %v", err)
	}
	tc := messageTurn("")
	tc.Activity.Type = ActivityTypeInvoke
	tc.Activity.Name = name
	tc.Activity.Value = raw
	return tc
}

func testHandler() AuthHandler {
	return AuthHandler{
		Name:              "graph",
		ConnectionName:    "graph-connection",
		OBOConnectionName: "graph-obo",
		Auto:              true,
		Title:             "Sign in",
		Text:              "Please sign in to continue",
	}
}

func newTestAuthorization(t *testing.T, client UserTokenClient, storage Storage, handlers ...AuthHandler) *Authorization {
	t.Helper()

	if len(handlers) == 0 {
		handlers = []AuthHandler{testHandler()}
	}
	auth, err := New().
		WithStorage(storage).
		WithTokenClient(client).
		WithHandlers(handlers...).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(auth.Close)
	return auth
}
