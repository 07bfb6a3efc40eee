package store

import (
	"context"
	"errors"

	"github.com/Sternrassler/route-cache/pkg/cache"
	"github.com/redis/go-redis/v9"
)

// Redis stores entries in Redis. TTLs are enforced by Redis key expiry.
type Redis struct {
	redis *redis.Client
}

// NewRedis creates a new store with Redis backend.
func NewRedis(redisClient *redis.Client) *Redis {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Redis{
		redis: redisClient,
	}
}

// Name returns the backend name.
func (r *Redis) Name() string { return BackendRedis }

// Has implements cache.Store.
func (r *Redis) Has(ctx context.Context, key string) (bool, error) {
	n, err := r.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fail("has", key, err)
	}
	return n > 0, nil
}

// Get implements cache.Store.
// Returns cache.ErrCacheMiss if the key doesn't exist.
func (r *Redis) Get(ctx context.Context, key string) (*cache.CacheEntry, error) {
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fail("get", key, err)
	}

	entry, err := cache.UnmarshalEntry(data)
	if err != nil {
		return nil, fail("get", key, err)
	}
	return entry, nil
}

// Put implements cache.Store. The entry is removed by Redis when the TTL elapses.
func (r *Redis) Put(ctx context.Context, key string, entry *cache.CacheEntry, ttlMinutes int) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	ttl, ok := ttlDuration(ttlMinutes)
	if !ok {
		return nil
	}

	data, err := entry.Marshal()
	if err != nil {
		return fail("put", key, err)
	}

	if err := r.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fail("put", key, err)
	}

	cache.CacheWrittenBytes.WithLabelValues(BackendRedis).Add(float64(len(data)))
	return nil
}

// Forget implements cache.Store.
func (r *Redis) Forget(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, key).Err(); err != nil {
		return fail("forget", key, err)
	}
	return nil
}

// Ping checks connectivity, for readiness probes.
func (r *Redis) Ping(ctx context.Context) error {
	return r.redis.Ping(ctx).Err()
}
