package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trenchwatch/engine/internal/domain"
)

// acquireLua atomically checks the stored last-alert timestamp and sets it to
// now when the cooldown window has elapsed (or no entry exists). Arguments
// are milliseconds. Returns 1 when the slot was acquired.
const acquireLua = `
local last = redis.call('GET', KEYS[1])
if last and (tonumber(ARGV[1]) - tonumber(last)) < tonumber(ARGV[2]) then
    return 0
end
redis.call('SET', KEYS[1], ARGV[1])
return 1
`

// CooldownStore implements domain.CooldownStore using one Redis string per
// token key holding the last-alert timestamp in unix milliseconds.
//
// Key schema:
//
//	cooldown:{tokenKey} - last alert time, unix milliseconds
type CooldownStore struct {
	rdb       *redis.Client
	acquireSc *redis.Script
}

// NewCooldownStore creates a CooldownStore backed by the given Client.
func NewCooldownStore(c *Client) *CooldownStore {
	return &CooldownStore{
		rdb:       c.Underlying(),
		acquireSc: redis.NewScript(acquireLua),
	}
}

func cooldownKey(key string) string { return "cooldown:" + key }

// Acquire runs the check-and-set script. The script executes atomically on
// the server, so concurrent callers for the same key cannot both win one
// window.
func (cs *CooldownStore) Acquire(ctx context.Context, key string, now time.Time, window time.Duration) (bool, error) {
	res, err := cs.acquireSc.Run(ctx, cs.rdb,
		[]string{cooldownKey(key)},
		now.UnixMilli(), window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis: acquire cooldown %s: %w", key, err)
	}
	return res == 1, nil
}

// Last returns the stored last-alert timestamp for key.
func (cs *CooldownStore) Last(ctx context.Context, key string) (time.Time, bool, error) {
	val, err := cs.rdb.Get(ctx, cooldownKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis: get cooldown %s: %w", key, err)
	}

	millis, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis: parse cooldown %s: %w", key, err)
	}
	return time.UnixMilli(millis), true, nil
}

// Sweep scans the cooldown namespace and deletes entries older than cutoff.
func (cs *CooldownStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	cutoffMillis := cutoff.UnixMilli()

	for {
		keys, next, err := cs.rdb.Scan(ctx, cursor, cooldownKey("*"), 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis: scan cooldowns: %w", err)
		}

		for _, key := range keys {
			val, err := cs.rdb.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // deleted between scan and get
				}
				return removed, fmt.Errorf("redis: get %s during sweep: %w", key, err)
			}

			millis, err := strconv.ParseInt(val, 10, 64)
			if err != nil || millis < cutoffMillis {
				if err := cs.rdb.Del(ctx, key).Err(); err != nil {
					return removed, fmt.Errorf("redis: delete %s during sweep: %w", key, err)
				}
				removed++
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Compile-time interface check.
var _ domain.CooldownStore = (*CooldownStore)(nil)
