package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/wangyizhang/eco-weather-service/internal/observability"
)

// CorrelationIDMiddleware assigns each request a correlation ID (propagated
// from X-Correlation-ID when the caller sent one) and stores a child logger
// carrying it in the request context.
func CorrelationIDMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			corrID := r.Header.Get("X-Correlation-ID")
			if corrID == "" {
				corrID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), "correlation_id", corrID)
			w.Header().Set("X-Correlation-ID", corrID)

			reqLogger := logger.With(zap.String("correlation_id", corrID))
			ctx = context.WithValue(ctx, "logger", reqLogger)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MetricsMiddleware records request counts, latency, and in-flight gauge.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		observability.HTTPRequestsInFlight.Inc()
		globalInFlight.Add(1)
		defer func() {
			observability.HTTPRequestsInFlight.Dec()
			globalInFlight.Add(-1)
		}()

		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		route := getRoute(r)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, route, statusCodeClass(recorder.statusCode)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration)
	})
}

func getRoute(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/health":
		return "/api/health"
	case path == "/metrics":
		return "/metrics"
	case strings.HasPrefix(path, "/api/weather/"):
		return "/api/weather/week"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func statusCodeClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// SecurityHeadersMiddleware sets the defensive response headers for a
// JSON-only API: no sniffing, no framing, no referrer leakage, and a CSP
// that forbids embedding the responses as active content.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// ClientLimiter hands out one token-bucket limiter per client IP, giving
// each caller a fixed request quota per window. Idle limiters are pruned so
// the map does not grow with every address ever seen.
type ClientLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	limit    rate.Limit
	burst    int
	maxIdle  time.Duration
	lastSeen func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientLimiter builds a per-IP limiter granting requests requests per
// window (e.g. 100 per 15m).
func NewClientLimiter(requests int, window time.Duration) *ClientLimiter {
	return &ClientLimiter{
		clients:  make(map[string]*clientBucket),
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		maxIdle:  2 * window,
		lastSeen: time.Now,
	}
}

// Allow reports whether the client identified by ip may proceed.
func (cl *ClientLimiter) Allow(ip string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	now := cl.lastSeen()
	b, ok := cl.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(cl.limit, cl.burst)}
		cl.clients[ip] = b
		cl.prune(now)
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// prune drops buckets idle past maxIdle. Called under the lock when a new
// client appears, which bounds work to churn rather than traffic.
func (cl *ClientLimiter) prune(now time.Time) {
	for ip, b := range cl.clients {
		if now.Sub(b.lastSeen) > cl.maxIdle {
			delete(cl.clients, ip)
		}
	}
}

// RateLimitMiddleware answers 429 when the caller's per-IP quota is
// exhausted. Disabled when limiter is nil.
func RateLimitMiddleware(limiter *ClientLimiter) mux.MiddlewareFunc {
	if limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
					logger.Debug("rate limit denied", zap.String("client_ip", ip))
				}
				observability.RateLimitDeniedTotal.Inc()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error": "too many requests, please try again later",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop (the service runs behind a
// platform proxy in deployment), falling back to the connection address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, ok := strings.Cut(xff, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// TimeoutMiddleware sets a deadline on the request context. Downstream
// handlers see context.DeadlineExceeded when it fires.
func TimeoutMiddleware(timeout time.Duration) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
