package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/wangyizhang/eco-weather-service/internal/cache"
	"github.com/wangyizhang/eco-weather-service/internal/client"
	"github.com/wangyizhang/eco-weather-service/internal/config"
	"github.com/wangyizhang/eco-weather-service/internal/geo"
	httphandler "github.com/wangyizhang/eco-weather-service/internal/http"
	"github.com/wangyizhang/eco-weather-service/internal/lifecycle"
	"github.com/wangyizhang/eco-weather-service/internal/observability"
	"github.com/wangyizhang/eco-weather-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	tz, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("timezone", zap.String("name", cfg.Timezone), zap.Error(err))
	}

	weatherClient, err := client.NewCWAClient(cfg.CWAAPIKey, cfg.CWAAPIURL, cfg.CWAAPITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	if cfg.BreakerEnabled {
		cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "cwa_api",
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				observability.BreakerTransitionsTotal.WithLabelValues(from.String(), to.String()).Inc()
				logger.Warn("circuit breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
			},
		})
		weatherClient.SetCircuitBreaker(cb)
		logger.Info("circuit breaker enabled",
			zap.Uint32("max_failures", cfg.BreakerMaxFailures),
			zap.Duration("timeout", cfg.BreakerTimeout))
	}

	var forecastCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		forecastCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		forecastCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	var opts []service.Option
	if cfg.CoalesceEnabled {
		opts = append(opts, service.WithCoalescing(cfg.CoalesceTimeout))
	}
	forecastService := service.NewForecastService(weatherClient, forecastCache, cfg.CacheTTL, tz, opts...)

	regionNames := make([]string, len(geo.Regions))
	for i, r := range geo.Regions {
		regionNames[i] = r.Name
	}
	observability.SetTrackedRegions(regionNames)

	if len(cfg.WarmRegions) > 0 {
		warmer := cache.NewWarmer(forecastService, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := warmer.Warm(warmCtx, cfg.WarmRegions); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		warmCancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.WarmRegions, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	var cachePing func() error
	if memcacheCloser != nil {
		cachePing = memcacheCloser.Ping
	}
	handler := httphandler.NewHandler(forecastService, logger, cachePing)

	var limiter *httphandler.ClientLimiter
	if cfg.RateLimitRequests > 0 {
		limiter = httphandler.NewClientLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.Use(httphandler.SecurityHeadersMiddleware)
	router.HandleFunc("/api/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	weatherRouter := router.PathPrefix("/api/weather").Subrouter()
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("/week", handler.GetWeeklyForecast).Methods("GET")

	corsOrigins := cfg.CORSAllowedOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	corsHandler := handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(router)

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      corsHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
