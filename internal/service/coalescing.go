package service

import (
	"context"
	"sync"
	"time"

	"weather-average-service/internal/models"
	"weather-average-service/internal/observability"
)

// inFlightComputation is a single upstream computation that multiple callers
// may wait on.
type inFlightComputation struct {
	mu      sync.Mutex
	result  models.AverageWeather
	err     error
	done    bool
	waiters []chan struct{}
}

// requestCoalescer collapses concurrent computations for the same cache key
// into a single upstream pipeline run. The computation runs on its own
// goroutine so a canceled caller does not abort it for the others.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightComputation
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightComputation),
		timeout:  timeout,
	}
}

// GetOrDo returns the result of an already in-flight computation for key if
// one exists, otherwise starts fn and registers it. Waiting is bounded by
// the coalescer timeout and the caller's context.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.AverageWeather, error)) (models.AverageWeather, error) {
	rc.mu.Lock()
	comp, exists := rc.inFlight[key]
	if exists {
		rc.mu.Unlock()
		observability.CoalescingHitsTotal.Inc()
		return rc.wait(ctx, comp)
	}

	comp = &inFlightComputation{}
	rc.inFlight[key] = comp
	rc.mu.Unlock()

	go func() {
		result, err := fn()

		comp.mu.Lock()
		comp.result = result
		comp.err = err
		comp.done = true
		waiters := comp.waiters
		comp.waiters = nil
		comp.mu.Unlock()

		for _, notify := range waiters {
			close(notify)
		}

		rc.mu.Lock()
		delete(rc.inFlight, key)
		rc.mu.Unlock()
	}()

	return rc.wait(ctx, comp)
}

// wait blocks until comp completes, the coalescer timeout fires, or ctx is
// done, whichever comes first.
func (rc *requestCoalescer) wait(ctx context.Context, comp *inFlightComputation) (models.AverageWeather, error) {
	comp.mu.Lock()
	if comp.done {
		result, err := comp.result, comp.err
		comp.mu.Unlock()
		return result, err
	}
	notify := make(chan struct{})
	comp.waiters = append(comp.waiters, notify)
	comp.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-notify:
		comp.mu.Lock()
		result, err := comp.result, comp.err
		comp.mu.Unlock()
		return result, err
	case <-waitCtx.Done():
		return models.AverageWeather{}, waitCtx.Err()
	}
}
