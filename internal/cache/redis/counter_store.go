package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trenchwatch/engine/internal/domain"
)

// CounterStore implements domain.PushCounter using Redis INCR. Counters are
// monotonic and never reset.
//
// Key schema:
//
//	pushcount:{tokenKey} - number of alerts composed for the token
type CounterStore struct {
	rdb *redis.Client
}

// NewCounterStore creates a CounterStore backed by the given Client.
func NewCounterStore(c *Client) *CounterStore {
	return &CounterStore{rdb: c.Underlying()}
}

func counterKey(key string) string { return "pushcount:" + key }

// Next increments and returns the push counter for the token key.
func (s *CounterStore) Next(ctx context.Context, key string) (int64, error) {
	n, err := s.rdb.Incr(ctx, counterKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: increment push counter %s: %w", key, err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.PushCounter = (*CounterStore)(nil)
