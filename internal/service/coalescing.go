package service

import (
	"context"
	"sync"
	"time"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

// inFlightFetch is one upstream aggregation that multiple callers may be
// waiting on. done is closed exactly once, after result/err are set.
type inFlightFetch struct {
	done   chan struct{}
	result models.AggregatedForecast
	err    error
}

// fetchCoalescer de-duplicates concurrent miss-path fetches per region: the
// first caller runs the fetch, later callers for the same key wait for its
// result instead of issuing their own.
type fetchCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightFetch
	timeout  time.Duration
}

func newFetchCoalescer(timeout time.Duration) *fetchCoalescer {
	return &fetchCoalescer{
		inFlight: make(map[string]*inFlightFetch),
		timeout:  timeout,
	}
}

// GetOrDo returns the result of an in-flight fetch for key, or runs fn as
// the leader. Waiting is bounded by the coalescer timeout and the caller's
// context; a timed-out waiter gets the context error, not a stale result.
func (fc *fetchCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.AggregatedForecast, error)) (models.AggregatedForecast, error) {
	fc.mu.Lock()
	fetch, exists := fc.inFlight[key]
	if !exists {
		fetch = &inFlightFetch{done: make(chan struct{})}
		fc.inFlight[key] = fetch
	}
	fc.mu.Unlock()

	if !exists {
		// Leader: run the fetch in a goroutine so an abandoning caller's
		// timeout does not strand the waiters.
		go func() {
			fetch.result, fetch.err = fn()
			close(fetch.done)

			fc.mu.Lock()
			delete(fc.inFlight, key)
			fc.mu.Unlock()
		}()
	}

	waitCtx, cancel := context.WithTimeout(ctx, fc.timeout)
	defer cancel()
	select {
	case <-fetch.done:
		return fetch.result, fetch.err
	case <-waitCtx.Done():
		return models.AggregatedForecast{}, waitCtx.Err()
	}
}
