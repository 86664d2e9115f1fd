package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95/p99 increases on the forecast route.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// CWA open-data API call rate by outcome. Watch for: error vs success ratio.
	CWAAPICallsTotal *prometheus.CounterVec

	// CWA API latency. Watch for: p95 > 2s (upstream degradation).
	CWAAPIDuration *prometheus.HistogramVec

	// Cache hits by backend. Hit rate = hits / forecastQueriesTotal.
	CacheHitsTotal *prometheus.CounterVec

	// Total weekly-forecast lookups.
	ForecastQueriesTotal prometheus.Counter

	// Per-region query count. Regions outside the tracked allow-list are
	// labeled "other" to bound cardinality.
	ForecastQueriesByRegionTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: abusive clients, quota too tight.
	RateLimitDeniedTotal prometheus.Counter

	// Concurrent cache misses for the same region observed at once.
	CacheStampedeDetectedTotal *prometheus.CounterVec

	// Time a coalesced request spent waiting on another caller's fetch.
	CoalescingWaitSeconds prometheus.Histogram

	// Cache warming runs, failures, and duration.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Circuit breaker state transitions for the CWA client.
	BreakerTransitionsTotal *prometheus.CounterVec

	// trackedRegions bounds the region label set; built from config.
	trackedRegionsMu sync.RWMutex
	trackedRegions   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	CWAAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cwaApiCallsTotal",
			Help: "Total number of CWA open-data API calls",
		},
		[]string{"status"},
	)
	CWAAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cwaApiDurationSeconds",
			Help:    "CWA open-data API latency in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of forecast cache hits",
		},
		[]string{"backend"},
	)
	ForecastQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastQueriesTotal",
			Help: "Total number of weekly forecast lookups",
		},
	)
	ForecastQueriesByRegionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastQueriesByRegionTotal",
			Help: "Weekly forecast lookups per region (tracked allow-list; others labeled other)",
		},
		[]string{"region"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by the per-IP rate limiter",
		},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheStampedeDetectedTotal",
			Help: "Times more than one concurrent miss was in flight for a region",
		},
		[]string{"region"},
	)
	CoalescingWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "coalescingWaitSeconds",
			Help:    "Time spent waiting on a coalesced upstream fetch",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingTotal",
			Help: "Total number of cache warming runs",
		},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheWarmingErrorsTotal",
			Help: "Cache warming runs that had at least one failed region",
		},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Duration of cache warming runs in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)
	BreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakerTransitionsTotal",
			Help: "CWA client circuit breaker state transitions",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPRequestsInFlight,
		CWAAPICallsTotal,
		CWAAPIDuration,
		CacheHitsTotal,
		ForecastQueriesTotal,
		ForecastQueriesByRegionTotal,
		RateLimitDeniedTotal,
		CacheStampedeDetectedTotal,
		CoalescingWaitSeconds,
		CacheWarmingTotal,
		CacheWarmingErrorsTotal,
		CacheWarmingDurationSeconds,
		BreakerTransitionsTotal,
	)
}

// MetricsHandler returns the /metrics handler backed by the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SetTrackedRegions installs the allow-list used by MetricRegionLabel.
func SetTrackedRegions(regions []string) {
	m := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		m[r] = struct{}{}
	}
	trackedRegionsMu.Lock()
	trackedRegions = m
	trackedRegionsMu.Unlock()
}

// MetricRegionLabel returns the region name if tracked, otherwise "other".
func MetricRegionLabel(region string) string {
	trackedRegionsMu.RLock()
	defer trackedRegionsMu.RUnlock()
	if _, ok := trackedRegions[region]; ok {
		return region
	}
	return "other"
}
