package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trenchwatch/engine/internal/domain"
)

// Key schema:
//
//	commands:processed - ZSET of handled command ids, scored by processed-at
//	commands:cursor    - poll offset into the command backlog
const (
	processedKey = "commands:processed"
	cursorKey    = "commands:cursor"
)

// CommandStore implements domain.ProcessedCommandStore. The processed set is
// a sorted set scored by processed-at time so each batched persist can also
// compact entries older than the retention horizon, keeping the set bounded.
type CommandStore struct {
	rdb       *redis.Client
	retention time.Duration
}

// NewCommandStore creates a CommandStore backed by the given Client. Entries
// older than retention are dropped on each Mark; retention should comfortably
// exceed the source's backlog redelivery window.
func NewCommandStore(c *Client, retention time.Duration) *CommandStore {
	return &CommandStore{rdb: c.Underlying(), retention: retention}
}

// Seen reports whether the command id has already been handled.
func (s *CommandStore) Seen(ctx context.Context, id string) (bool, error) {
	_, err := s.rdb.ZScore(ctx, processedKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis: check processed %s: %w", id, err)
	}
	return true, nil
}

// Mark records a batch of ids as processed and compacts expired entries, all
// in one pipeline round trip.
func (s *CommandStore) Mark(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]redis.Z, len(ids))
	score := float64(at.UnixMilli())
	for i, id := range ids {
		members[i] = redis.Z{Score: score, Member: id}
	}

	expiredBefore := fmt.Sprintf("%d", at.Add(-s.retention).UnixMilli())

	pipe := s.rdb.TxPipeline()
	pipe.ZAdd(ctx, processedKey, members...)
	pipe.ZRemRangeByScore(ctx, processedKey, "-inf", expiredBefore)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: mark %d commands processed: %w", len(ids), err)
	}
	return nil
}

// Cursor returns the stored poll offset, or zero when none has been set.
func (s *CommandStore) Cursor(ctx context.Context) (int64, error) {
	cursor, err := s.rdb.Get(ctx, cursorKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: get command cursor: %w", err)
	}
	return cursor, nil
}

// SetCursor stores the poll offset for the next cycle.
func (s *CommandStore) SetCursor(ctx context.Context, cursor int64) error {
	if err := s.rdb.Set(ctx, cursorKey, cursor, 0).Err(); err != nil {
		return fmt.Errorf("redis: set command cursor: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ProcessedCommandStore = (*CommandStore)(nil)
