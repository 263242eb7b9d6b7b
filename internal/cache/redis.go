package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// redisPrefix namespaces every key this cache writes.
const redisPrefix = "regionmap:boundary:"

// Redis stores entries in a Redis server with native key expiry.
type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedis wraps a client. ttl <= 0 stores keys without expiry.
func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{rc: rc, ttl: ttl}
}

// OpenRedis connects to the server described by a redis:// URL.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse redis url")
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, eris.Wrap(err, "cache: redis ping")
	}
	return NewRedis(rc, ttl), nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := r.rc.Get(ctx, redisPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "cache: redis get %s", shortKey(key))
	}
	return data, true, nil
}

// Put implements Cache.
func (r *Redis) Put(ctx context.Context, key string, data []byte) error {
	err := r.rc.Set(ctx, redisPrefix+key, data, r.ttl).Err()
	return eris.Wrapf(err, "cache: redis put %s", shortKey(key))
}

// Clear implements Cache. Only keys under this cache's prefix are removed.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.rc.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return eris.Wrap(err, "cache: redis scan")
	}
	if len(keys) == 0 {
		return nil
	}
	return eris.Wrap(r.rc.Del(ctx, keys...).Err(), "cache: redis clear")
}

// Close implements Cache.
func (r *Redis) Close() error {
	return r.rc.Close()
}
