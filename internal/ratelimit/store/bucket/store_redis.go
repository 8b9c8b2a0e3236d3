package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trialgate/internal/ratelimit/models"
	"trialgate/pkg/requestcontext"
)

// fixedWindowScript increments the counter and starts the window TTL on first use.
// A key that lost its TTL is given a fresh one so it cannot live forever.
// Returns {count, pttl_ms}.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisBucketStore keeps fixed-window counters in Redis. Increment and compare
// run inside a single Lua script, so the check is atomic across callers.
type RedisBucketStore struct {
	client redis.Cmdable
}

// NewRedisBucketStore constructs a Redis-backed bucket store.
func NewRedisBucketStore(client redis.Cmdable) *RedisBucketStore {
	return &RedisBucketStore{client: client}
}

func (s *RedisBucketStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error) {
	vals, err := fixedWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("increment rate limit window: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("increment rate limit window: unexpected reply length %d", len(vals))
	}
	now := requestcontext.Now(ctx)
	resetAt := now.Add(time.Duration(vals[1]) * time.Millisecond)
	return models.NewResult(int(vals[0]), limit, resetAt, now), nil
}

func (s *RedisBucketStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset rate limit window: %w", err)
	}
	return nil
}
