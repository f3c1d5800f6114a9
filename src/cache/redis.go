package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "cgm-alert-pipeline/src/errors"
	"cgm-alert-pipeline/src/logger"
)

// Store is a best-effort key/value store. Implementations never surface
// errors: a failed Get is a miss and a failed Set is dropped.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// RedisStore keeps JSON blobs in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore does not ping: an unreachable cache only disables dedup.
func NewRedisStore(opts *redis.Options) *RedisStore {
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 3 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	return &RedisStore{client: redis.NewClient(opts)}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Warn("cache get failed", apperrors.NewCacheError(err, key).LogFields()...)
		return nil, false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Warn("cache set failed", apperrors.NewCacheError(err, key).LogFields()...)
	}
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
