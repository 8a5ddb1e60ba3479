package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedProvider keeps division lists in redis. Cache failures fall through
// to the wrapped provider.
type CachedProvider struct {
	next  Provider
	redis redis.Cmdable
	ttl   time.Duration
	log   zerolog.Logger
}

// NewCachedProvider wraps next with a redis cache.
func NewCachedProvider(next Provider, rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedProvider{next: next, redis: rdb, ttl: ttl, log: logger}
}

// ConnectRedis opens and pings a redis client from a redis:// URL.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolSize = 20
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 5 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func (c *CachedProvider) Provinces(ctx context.Context) ([]Division, error) {
	return c.cached(ctx, "geo:provinces", func() ([]Division, error) {
		return c.next.Provinces(ctx)
	})
}

func (c *CachedProvider) Districts(ctx context.Context, province int) ([]Division, error) {
	return c.cached(ctx, fmt.Sprintf("geo:districts:%d", province), func() ([]Division, error) {
		return c.next.Districts(ctx, province)
	})
}

func (c *CachedProvider) Wards(ctx context.Context, district int) ([]Division, error) {
	return c.cached(ctx, fmt.Sprintf("geo:wards:%d", district), func() ([]Division, error) {
		return c.next.Wards(ctx, district)
	})
}

func (c *CachedProvider) cached(ctx context.Context, key string, load func() ([]Division, error)) ([]Division, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out []Division
		if err := json.Unmarshal(data, &out); err == nil {
			return out, nil
		}
		c.log.Warn().Str("key", key).Msg("corrupt cached division list, reloading")
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn().Err(err).Str("key", key).Msg("redis error, continuing without cache")
	}

	out, err := load()
	if err != nil {
		return nil, err
	}

	// Empty lists are never cached.
	if len(out) == 0 {
		return out, nil
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return out, nil
	}
	if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to cache division list")
	}
	return out, nil
}
