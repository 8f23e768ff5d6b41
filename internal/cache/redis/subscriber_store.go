package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trenchwatch/engine/internal/domain"
)

// subscribersKey is the Redis set holding all current subscriber ids.
const subscribersKey = "subscribers"

// SubscriberStore implements domain.SubscriberRegistry using a Redis set.
type SubscriberStore struct {
	rdb *redis.Client
}

// NewSubscriberStore creates a SubscriberStore backed by the given Client.
func NewSubscriberStore(c *Client) *SubscriberStore {
	return &SubscriberStore{rdb: c.Underlying()}
}

// Add inserts a subscriber id. Adding an existing id is a no-op.
func (s *SubscriberStore) Add(ctx context.Context, id string) error {
	if err := s.rdb.SAdd(ctx, subscribersKey, id).Err(); err != nil {
		return fmt.Errorf("redis: add subscriber %s: %w", id, err)
	}
	return nil
}

// Remove deletes a subscriber id. Removing an absent id is a no-op.
func (s *SubscriberStore) Remove(ctx context.Context, id string) error {
	if err := s.rdb.SRem(ctx, subscribersKey, id).Err(); err != nil {
		return fmt.Errorf("redis: remove subscriber %s: %w", id, err)
	}
	return nil
}

// Contains reports whether the id is currently subscribed.
func (s *SubscriberStore) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := s.rdb.SIsMember(ctx, subscribersKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check subscriber %s: %w", id, err)
	}
	return ok, nil
}

// All returns every subscriber id in unspecified order.
func (s *SubscriberStore) All(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, subscribersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list subscribers: %w", err)
	}
	return ids, nil
}

// Compile-time interface check.
var _ domain.SubscriberRegistry = (*SubscriberStore)(nil)
