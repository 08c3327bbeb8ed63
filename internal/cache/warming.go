package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"weather-average-service/internal/models"
	"weather-average-service/internal/observability"
)

// AverageFetcher is implemented by the service layer. Used by Warmer so this
// package does not depend on the service package.
type AverageFetcher interface {
	GetAverage(ctx context.Context, city, country string, days int) (models.AverageWeather, error)
}

// Warmer prefetches averages for a fixed list of cities so the first real
// request of the day does not pay both upstream round trips.
type Warmer struct {
	fetcher AverageFetcher
	days    int
	logger  *zap.Logger
}

// NewWarmer creates a Warmer that prefetches days-long averages via fetcher.
func NewWarmer(fetcher AverageFetcher, days int, logger *zap.Logger) *Warmer {
	if days < 1 {
		days = 7
	}
	return &Warmer{fetcher: fetcher, days: days, logger: logger}
}

// Warm fetches the average for each city concurrently, populating the cache
// through the fetcher. Returns an aggregated error if any city failed.
func (w *Warmer) Warm(ctx context.Context, cities []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("cities", len(cities)), zap.Int("days", w.days))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(cities))
	for _, city := range cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := w.fetcher.GetAverage(ctx, city, "", w.days); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", city, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("cities", len(cities)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done. Keeping the interval below the cache TTL keeps warmed
// entries permanently fresh.
func (w *Warmer) WarmPeriodic(ctx context.Context, cities []string, interval time.Duration) error {
	if err := w.Warm(ctx, cities); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, cities); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
