package agentauth

import (
	"context"
	"sync"
)

// Storage is the opaque key-value collaborator flow records are persisted
// in. Keys are the strings produced by [FlowStorageClient.Key].
// Implementations must be safe for concurrent per-key read/write.
type Storage interface {
	// Read returns the records found under keys; absent keys are simply
	// missing from the result map.
	Read(ctx context.Context, keys []string) (map[string]*FlowState, error)
	// Write upserts every record in changes under its key.
	Write(ctx context.Context, changes map[string]*FlowState) error
	// Delete removes the given keys; deleting an absent key is not an error.
	Delete(ctx context.Context, keys []string) error
}

// MemoryStorage is an in-process [Storage] for tests and single-instance
// deployments. Records are kept in their encoded form so the memory path
// round-trips the same codec as the Redis path.
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string][]byte)}
}

// Read implements [Storage].
func (s *MemoryStorage) Read(_ context.Context, keys []string) (map[string]*FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*FlowState, len(keys))
	for _, key := range keys {
		data, ok := s.items[key]
		if !ok {
			continue
		}
		state, err := decodeFlowState(data)
		if err != nil {
			return nil, err
		}
		out[key] = state
	}
	return out, nil
}

// Write implements [Storage].
func (s *MemoryStorage) Write(_ context.Context, changes map[string]*FlowState) error {
	encoded := make(map[string][]byte, len(changes))
	for key, state := range changes {
		data, err := encodeFlowState(state)
		if err != nil {
			return err
		}
		encoded[key] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, data := range encoded {
		s.items[key] = data
	}
	return nil
}

// Delete implements [Storage].
func (s *MemoryStorage) Delete(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}
