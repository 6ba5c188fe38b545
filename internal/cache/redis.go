package cache

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/notehub/accounts/internal/config"
	"github.com/notehub/accounts/internal/model"
)

// RedisStore keeps detail entries in Redis as JSON with a per-key TTL,
// so all instances share one cache and invalidation-by-expiry is
// handled by the server.
type RedisStore struct {
	cfg config.DetailCacheConfig
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed detail store. rdb must be
// non-nil; callers without a connection should use NewMemoryStore or
// disable caching.
func NewRedisStore(cfg config.DetailCacheConfig, rdb *redis.Client) *RedisStore {
	return &RedisStore{cfg: cfg, rdb: rdb}
}

func (s *RedisStore) key(id uint64) string {
	return s.cfg.Prefix + ":" + strconv.FormatUint(id, 10)
}

func (s *RedisStore) Get(ctx context.Context, id uint64) (model.UserDetail, bool, error) {
	bs, err := s.rdb.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return model.UserDetail{}, false, nil
	}
	if err != nil {
		return model.UserDetail{}, false, err
	}
	var d model.UserDetail
	if err := json.Unmarshal(bs, &d); err != nil {
		// A corrupt entry reads as a miss; it will be rewritten.
		return model.UserDetail{}, false, nil
	}
	return d, true, nil
}

func (s *RedisStore) Set(ctx context.Context, id uint64, d model.UserDetail) error {
	bs, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.SetEx(ctx, s.key(id), bs, s.cfg.TTL).Err()
}
