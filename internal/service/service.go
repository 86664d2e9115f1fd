package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/wangyizhang/eco-weather-service/internal/astro"
	"github.com/wangyizhang/eco-weather-service/internal/cache"
	"github.com/wangyizhang/eco-weather-service/internal/client"
	"github.com/wangyizhang/eco-weather-service/internal/forecast"
	"github.com/wangyizhang/eco-weather-service/internal/geo"
	"github.com/wangyizhang/eco-weather-service/internal/models"
	"github.com/wangyizhang/eco-weather-service/internal/observability"
)

// astroDays is the augmentation horizon: one sunrise/sunset entry per day.
const astroDays = 7

// ForecastService runs the resolution-and-aggregation pipeline: geocode the
// query, consult the TTL cache, and on a miss fetch, normalize, augment, and
// store. The cache exclusively owns stored aggregates; a returned value is
// the caller's copy.
type ForecastService struct {
	client    client.WeatherClient
	cache     cache.Cache
	ttl       time.Duration
	tz        *time.Location
	clock     func() time.Time
	coalescer *fetchCoalescer // nil when single-flight is disabled
	misses    *missTracker
}

// Option configures a ForecastService.
type Option func(*ForecastService)

// WithClock injects the generation-timestamp clock. Tests use this for
// deterministic LastUpdate values.
func WithClock(clock func() time.Time) Option {
	return func(s *ForecastService) { s.clock = clock }
}

// WithCoalescing enables single-flight de-duplication of concurrent misses
// for the same region. Purely a performance optimization: with or without
// it, the last cache write for a key wins and rebuilds the same forecast.
func WithCoalescing(timeout time.Duration) Option {
	return func(s *ForecastService) {
		if timeout > 0 {
			s.coalescer = newFetchCoalescer(timeout)
		}
	}
}

// NewForecastService creates the pipeline orchestrator. ttl bounds cache
// entry age; tz is the region-local zone used for slot boundaries and sun
// times.
func NewForecastService(weatherClient client.WeatherClient, forecastCache cache.Cache, ttl time.Duration, tz *time.Location, opts ...Option) *ForecastService {
	s := &ForecastService{
		client: weatherClient,
		cache:  forecastCache,
		ttl:    ttl,
		tz:     tz,
		clock:  time.Now,
		misses: newMissTracker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// loggerFromContext extracts the request-scoped zap.Logger if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetWeekly resolves the query to a canonical region and returns its
// aggregated weekly forecast, from cache when fresh. Unresolvable queries
// return geo.ErrRegionNotFound; upstream and payload problems return errors
// wrapping client.ErrUpstreamFailure or client.ErrMalformedPayload.
func (s *ForecastService) GetWeekly(ctx context.Context, q geo.Query) (models.AggregatedForecast, error) {
	region, err := geo.Resolve(q)
	if err != nil {
		return models.AggregatedForecast{}, err
	}

	logger := loggerFromContext(ctx)
	observability.ForecastQueriesTotal.Inc()
	regionLabel := observability.MetricRegionLabel(region.Name)
	observability.ForecastQueriesByRegionTotal.WithLabelValues(regionLabel).Inc()

	cached, ok, err := s.cache.Get(ctx, region.Name)
	if err != nil {
		if logger != nil {
			logger.Warn("cache get failed", zap.String("region", region.Name), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.WithLabelValues("forecast").Inc()
		if logger != nil {
			logger.Debug("cache hit", zap.String("region", region.Name))
		}
		return cached, nil
	}

	concurrent := s.misses.Begin(region.Name)
	defer s.misses.End(region.Name)
	if concurrent > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(regionLabel).Inc()
	}

	if logger != nil {
		logger.Debug("cache miss, fetching upstream", zap.String("region", region.Name))
	}

	var agg models.AggregatedForecast
	if s.coalescer != nil {
		waitStart := time.Now()
		agg, err = s.coalescer.GetOrDo(ctx, region.Name, func() (models.AggregatedForecast, error) {
			return s.buildForecast(ctx, region)
		})
		observability.CoalescingWaitSeconds.Observe(time.Since(waitStart).Seconds())
	} else {
		agg, err = s.buildForecast(ctx, region)
	}
	if err != nil {
		return models.AggregatedForecast{}, err
	}

	if setErr := s.cache.Set(ctx, region.Name, agg, s.ttl); setErr != nil {
		// A failed write means the next request refetches; the response
		// itself is still complete.
		if logger != nil {
			logger.Warn("cache set failed", zap.String("region", region.Name), zap.Error(setErr))
		}
	}
	return agg, nil
}

// buildForecast runs the miss path: fetch, normalize, augment, assemble.
// Either every stage completes or the whole request fails; no partial
// aggregates are produced.
func (s *ForecastService) buildForecast(ctx context.Context, region models.CanonicalRegion) (models.AggregatedForecast, error) {
	raw, err := s.client.FetchWeekly(ctx, region.Name)
	if err != nil {
		return models.AggregatedForecast{}, fmt.Errorf("fetch weekly forecast for %s: %w", region.Name, err)
	}

	slots, err := forecast.Normalize(raw, s.tz)
	if err != nil {
		return models.AggregatedForecast{}, fmt.Errorf("normalize forecast for %s: %w", region.Name, err)
	}

	now := s.clock()
	return models.AggregatedForecast{
		City:       region.Name,
		Coords:     models.Coordinates{Lat: region.Lat, Lon: region.Lon},
		Forecasts:  slots,
		Astro:      astro.Augment(region.Lat, region.Lon, now, astroDays, s.tz),
		LastUpdate: now,
	}, nil
}
