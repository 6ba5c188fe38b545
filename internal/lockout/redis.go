package lockout

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/notehub/accounts/internal/config"
)

// RedisTracker keeps failure counters in Redis so every instance of the
// service sees the same counts. INCR is atomic, which gives the
// no-lost-updates guarantee for free; the key TTL implements the
// sliding window, refreshed on every failure.
type RedisTracker struct {
	cfg config.LockoutConfig
	rdb *redis.Client
}

// NewRedisTracker creates a Redis-backed tracker. rdb must be non-nil;
// callers that failed to connect should fall back to NewMemoryTracker.
func NewRedisTracker(cfg config.LockoutConfig, rdb *redis.Client) *RedisTracker {
	return &RedisTracker{cfg: cfg, rdb: rdb}
}

func (t *RedisTracker) key(userID string) string {
	return t.cfg.Prefix + ":" + userID
}

// IsLoginFailed reports whether the stored count has reached the
// threshold. A missing key reads as zero.
func (t *RedisTracker) IsLoginFailed(ctx context.Context, userID string) (bool, error) {
	n, err := t.rdb.Get(ctx, t.key(userID)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= t.cfg.Threshold, nil
}

// RecordFailure atomically increments the counter and restarts the
// window TTL.
func (t *RedisTracker) RecordFailure(ctx context.Context, userID string) error {
	key := t.key(userID)
	pipe := t.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.cfg.Window)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset deletes the counter.
func (t *RedisTracker) Reset(ctx context.Context, userID string) error {
	return t.rdb.Del(ctx, t.key(userID)).Err()
}
