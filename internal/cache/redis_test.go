package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"weather-average-service/internal/models"
)

func newTestRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedisCache(t)

	val := models.AverageWeather{City: "Tokyo", Days: 3, AverageTemperatureC: 12.34}
	if err := c.Set(ctx, "k", val, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != val {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

func TestRedisCache_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestRedisCache(t)

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v, want nil for miss", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestRedisCache_TTLExpiry verifies that the backend enforces expiry: once
// the TTL has elapsed the entry is absent.
func TestRedisCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	val := models.AverageWeather{City: "Tokyo", Days: 3, AverageTemperatureC: 12.0}
	if err := c.Set(ctx, "k", val, 60*time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("entry should be present before TTL elapses")
	}

	mr.FastForward(61 * time.Second)

	_, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false after TTL elapsed")
	}
}

func TestRedisCache_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	if err := c.Set(ctx, "k", models.AverageWeather{City: "X"}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists(redisKeyPrefix + "k") {
		t.Errorf("expected key %q in redis", redisKeyPrefix+"k")
	}
}

func TestRedisCache_Ping(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestRedisCache(t)

	if err := c.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	mr.Close()
	if err := c.Ping(ctx); err == nil {
		t.Error("Ping() after server close should fail")
	}
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	if _, err := NewRedisCache("not-a-url"); err == nil {
		t.Error("NewRedisCache() with invalid URL should fail")
	}
}
