package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"weather-average-service/internal/cache"
	"weather-average-service/internal/client"
	"weather-average-service/internal/models"
	"weather-average-service/internal/observability"
)

// ErrInvalidDays is returned when days is below 1 or above the configured cap.
var ErrInvalidDays = errors.New("invalid days")

// AverageService orchestrates the geocode + archive pipeline behind a
// cache-aside TTL cache. Cache failures are absorbed: a broken backend
// behaves as a permanent miss and never fails a request.
type AverageService struct {
	client    client.WeatherClient
	cache     cache.Cache
	ttl       time.Duration
	maxDays   int // 0 = uncapped
	coalescer *requestCoalescer

	// now anchors the cache-key date component. Overridden in tests.
	now func() time.Time
}

// NewAverageService creates an AverageService. ttl is the cache entry
// lifetime, maxDays caps the requested window (0 disables the cap).
// Coalescing of concurrent identical computations is enabled when
// coalesceTimeout is positive; when disabled, two concurrent misses for the
// same key both call upstream, which is tolerated since recomputation is
// idempotent.
func NewAverageService(weatherClient client.WeatherClient, cacheStore cache.Cache, ttl time.Duration, maxDays int, coalesceEnabled bool, coalesceTimeout time.Duration) *AverageService {
	var coalescer *requestCoalescer
	if coalesceEnabled && coalesceTimeout > 0 {
		coalescer = newRequestCoalescer(coalesceTimeout)
	}
	return &AverageService{
		client:    weatherClient,
		cache:     cacheStore,
		ttl:       ttl,
		maxDays:   maxDays,
		coalescer: coalescer,
		now:       time.Now,
	}
}

// loggerFromContext extracts the request-scoped zap.Logger if the middleware
// put one there. Returns nil otherwise.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// ComputeAverageTemperature runs the full pipeline without touching the
// cache: validate days, geocode the city, fetch the daily series for the
// resulting coordinates, and reduce it to a mean rounded to 2 decimals
// (half away from zero, math.Round semantics). The returned City is the
// geocoder's canonical name, not the caller's spelling.
func (s *AverageService) ComputeAverageTemperature(ctx context.Context, city, country string, days int) (models.AverageWeather, error) {
	if days < 1 {
		return models.AverageWeather{}, fmt.Errorf("%w: 'days' must be >= 1", ErrInvalidDays)
	}
	if s.maxDays > 0 && days > s.maxDays {
		return models.AverageWeather{}, fmt.Errorf("%w: 'days' must be <= %d", ErrInvalidDays, s.maxDays)
	}

	geo, err := s.client.GeocodeCity(ctx, city, country)
	if err != nil {
		return models.AverageWeather{}, fmt.Errorf("geocode %q: %w", city, err)
	}

	series, err := s.client.FetchDailyTemperatures(ctx, geo.Latitude, geo.Longitude, days)
	if err != nil {
		return models.AverageWeather{}, fmt.Errorf("fetch temperatures for %q: %w", geo.Name, err)
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	avg := round2(sum / float64(len(series)))

	return models.AverageWeather{
		City:                geo.Name,
		Days:                days,
		AverageTemperatureC: avg,
	}, nil
}

// GetAverage is the cache-aside entry point used by the HTTP layer: derive
// the key, consult the cache, compute on miss, store the result with the
// configured TTL.
func (s *AverageService) GetAverage(ctx context.Context, city, country string, days int) (models.AverageWeather, error) {
	if days < 1 {
		return models.AverageWeather{}, fmt.Errorf("%w: 'days' must be >= 1", ErrInvalidDays)
	}
	if s.maxDays > 0 && days > s.maxDays {
		return models.AverageWeather{}, fmt.Errorf("%w: 'days' must be <= %d", ErrInvalidDays, s.maxDays)
	}

	logger := loggerFromContext(ctx)
	observability.RecordAverageQuery(city)

	key := CacheKey(city, country, days, s.windowEnd())

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("average").Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("key", key))
		}
		return cached, nil
	}

	if logger != nil {
		logger.Debug("cache miss, computing", zap.String("key", key))
	}

	var result models.AverageWeather
	var computeErr error
	if s.coalescer != nil {
		coalesceStart := time.Now()
		result, computeErr = s.coalescer.GetOrDo(ctx, key, func() (models.AverageWeather, error) {
			return s.ComputeAverageTemperature(ctx, city, country, days)
		})
		if computeErr == nil {
			observability.CoalescingWaitSeconds.Observe(time.Since(coalesceStart).Seconds())
		}
	} else {
		result, computeErr = s.ComputeAverageTemperature(ctx, city, country, days)
	}
	if computeErr != nil {
		return models.AverageWeather{}, computeErr
	}

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, key, result, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(setErr)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}

	return result, nil
}

// windowEnd returns the archive window's end date: yesterday in UTC.
func (s *AverageService) windowEnd() time.Time {
	return s.now().UTC().AddDate(0, 0, -1)
}

// round2 rounds to 2 decimal places, halves away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// categorizeCacheError returns a stable label for cache error metrics
// (timeout, connection, unknown).
func categorizeCacheError(err error) string {
	if err == nil {
		return "unknown"
	}
	errStr := err.Error()
	if strings.Contains(errStr, "timeout") {
		return "timeout"
	}
	if strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") || strings.Contains(errStr, "refused") {
		return "connection"
	}
	return "unknown"
}
