package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wangyizhang/eco-weather-service/internal/geo"
	"github.com/wangyizhang/eco-weather-service/internal/models"
	"github.com/wangyizhang/eco-weather-service/internal/observability"
)

// ForecastFetcher is implemented by the service layer. The warmer depends on
// this narrow interface rather than the service package to avoid a cycle.
type ForecastFetcher interface {
	GetWeekly(ctx context.Context, q geo.Query) (models.AggregatedForecast, error)
}

// Warmer prefetches forecasts for a list of region names so the first real
// request for a popular county hits a warm cache.
type Warmer struct {
	fetcher ForecastFetcher
	logger  *zap.Logger
}

// NewWarmer creates a Warmer using the given fetcher and logger.
func NewWarmer(fetcher ForecastFetcher, logger *zap.Logger) *Warmer {
	return &Warmer{fetcher: fetcher, logger: logger}
}

// Warm fetches the weekly forecast for each region concurrently, populating
// the cache through the normal pipeline. Returns an aggregated error if any
// region failed; the others are still warmed.
func (w *Warmer) Warm(ctx context.Context, regions []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("regions", len(regions)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(regions))
	for _, name := range regions {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := w.fetcher.GetWeekly(ctx, geo.Query{City: name}); err != nil {
				errCh <- fmt.Errorf("warm %s: %w", name, err)
			}
		}(name)
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
		w.logger.Info("cache warming complete", zap.Int("regions", len(regions)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic refreshes the configured regions at the given interval until
// ctx is done. Interval should exceed the cache TTL only if deliberate; a
// shorter interval keeps tracked regions permanently warm.
func (w *Warmer) WarmPeriodic(ctx context.Context, regions []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, regions); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
