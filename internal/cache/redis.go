package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"weather-average-service/internal/models"
)

const redisKeyPrefix = "weather-average:"

// RedisCache implements Cache on a shared Redis instance. Values are stored
// as JSON; expiry is enforced by Redis itself via SET EX.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a RedisCache from a redis:// or rediss:// URL.
// The URL is only parsed here; reachability is checked via Ping so the
// caller can decide whether to fall back to the in-process backend.
func NewRedisCache(rawURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

// NewRedisCacheFromClient wraps an existing client. Used by tests.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) key(k string) string {
	return redisKeyPrefix + k
}

// Get implements Cache.Get. A redis.Nil reply is a miss, not an error.
func (c *RedisCache) Get(ctx context.Context, key string) (models.AverageWeather, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.AverageWeather{}, false, nil
		}
		return models.AverageWeather{}, false, err
	}
	var value models.AverageWeather
	if err := json.Unmarshal(raw, &value); err != nil {
		return models.AverageWeather{}, false, fmt.Errorf("decode cached value: %w", err)
	}
	return value, true, nil
}

// Set implements Cache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value models.AverageWeather, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return c.client.Set(ctx, c.key(key), raw, ttl).Err()
}

// Ping checks that Redis is reachable. Used at startup for backend selection
// and by the health endpoint.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client connections. Call during shutdown.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
