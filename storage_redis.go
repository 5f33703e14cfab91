package agentauth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage is the production [Storage]: one Redis string per flow
// record, prefix-namespaced, expiring on its own after RecordTTL so
// abandoned flows do not accumulate. RecordTTL bounds record lifetime at
// the storage layer and must comfortably exceed the flow TTL; the state
// machine enforces the flow deadline itself.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStorage creates a Redis-backed store. An empty prefix defaults to
// "aaf"; a non-positive ttl disables record expiry.
func NewRedisStorage(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = "aaf"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStorage{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) key(k string) string {
	return s.prefix + ":" + k
}

// Read implements [Storage] with a single MGET.
func (s *RedisStorage) Read(ctx context.Context, keys []string) (map[string]*FlowState, error) {
	if len(keys) == 0 {
		return map[string]*FlowState{}, nil
	}

	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = s.key(k)
	}

	values, err := s.redis.MGet(ctx, namespaced...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	out := make(map[string]*FlowState, len(keys))
	for i, value := range values {
		if value == nil {
			continue
		}
		raw, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected value type %T", ErrFlowRecordInvalid, value)
		}
		state, err := decodeFlowState([]byte(raw))
		if err != nil {
			return nil, err
		}
		out[keys[i]] = state
	}
	return out, nil
}

// Write implements [Storage] with one pipelined SET per record.
func (s *RedisStorage) Write(ctx context.Context, changes map[string]*FlowState) error {
	if len(changes) == 0 {
		return nil
	}

	encoded := make(map[string][]byte, len(changes))
	for key, state := range changes {
		data, err := encodeFlowState(state)
		if err != nil {
			return err
		}
		encoded[key] = data
	}

	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range encoded {
			pipe.Set(ctx, s.key(key), data, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// Delete implements [Storage].
func (s *RedisStorage) Delete(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = s.key(k)
	}
	if err := s.redis.Del(ctx, namespaced...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
