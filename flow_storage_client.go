package agentauth

import "context"

const flowKeyPrefix = "auth"

// FlowStorageClient addresses flow records for one (channel, user) pair. It
// is a short-lived per-operation view over the shared [Storage]; a fresh
// client is built inside every transaction.
type FlowStorageClient struct {
	storage   Storage
	channelID string
	userID    string
}

// NewFlowStorageClient validates that the turn carries both a channel id
// and a user id; a flow cannot be addressed without them. It returns
// [ErrMissingIdentity] before any storage access otherwise.
func NewFlowStorageClient(tc *TurnContext, storage Storage) (*FlowStorageClient, error) {
	channelID := tc.channelID()
	userID := tc.userID()
	if channelID == "" || userID == "" {
		return nil, ErrMissingIdentity
	}
	return &FlowStorageClient{
		storage:   storage,
		channelID: channelID,
		userID:    userID,
	}, nil
}

// Key composes the storage key for the given handler. It is a pure
// function: the same triple always maps to the same key, and distinct
// handler ids for one (channel, user) pair never collide.
func (c *FlowStorageClient) Key(authHandlerID string) string {
	return flowKeyPrefix + "/" + c.channelID + "/" + c.userID + "/" + authHandlerID
}

// Read loads the record for the handler, or nil when no flow exists yet.
func (c *FlowStorageClient) Read(ctx context.Context, authHandlerID string) (*FlowState, error) {
	key := c.Key(authHandlerID)
	records, err := c.storage.Read(ctx, []string{key})
	if err != nil {
		return nil, err
	}
	return records[key], nil
}

// Write upserts the record under the key derived from its handler id.
func (c *FlowStorageClient) Write(ctx context.Context, state *FlowState) error {
	return c.storage.Write(ctx, map[string]*FlowState{
		c.Key(state.AuthHandlerID): state,
	})
}

// Delete removes the record for the handler.
func (c *FlowStorageClient) Delete(ctx context.Context, authHandlerID string) error {
	return c.storage.Delete(ctx, []string{c.Key(authHandlerID)})
}
