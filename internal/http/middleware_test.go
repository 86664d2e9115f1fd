package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestSecurityHeadersMiddleware verifies the defensive headers are present
// on every response.
func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := SecurityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/weather/week", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy missing")
	}
}

// TestClientLimiter_QuotaPerIP verifies that quota is enforced per client
// address and exhausting one address does not affect another.
func TestClientLimiter_QuotaPerIP(t *testing.T) {
	limiter := NewClientLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("203.0.113.1") {
			t.Fatalf("request %d denied, want allowed within quota", i+1)
		}
	}
	if limiter.Allow("203.0.113.1") {
		t.Error("request beyond quota allowed, want denied")
	}
	if !limiter.Allow("203.0.113.2") {
		t.Error("different IP denied, want independent quota")
	}
}

// TestRateLimitMiddleware verifies 429 once a client's quota is gone, and
// that a nil limiter disables limiting.
func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewClientLimiter(2, time.Hour)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RateLimitMiddleware(limiter)(next)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/weather/week", nil)
		req.RemoteAddr = "203.0.113.9:51000"
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/weather/week", nil)
	req.RemoteAddr = "203.0.113.9:51001"
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over-quota status = %d, want 429", rec.Code)
	}

	disabled := RateLimitMiddleware(nil)(next)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("nil limiter status = %d, want 200", rec.Code)
	}
}

// TestClientIP verifies the forwarded-for preference and the RemoteAddr
// fallback.
func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff        string
		remoteAddr string
		want       string
	}{
		{"forwarded single", "198.51.100.7", "10.0.0.1:9999", "198.51.100.7"},
		{"forwarded chain", "198.51.100.7, 10.0.0.2", "10.0.0.1:9999", "198.51.100.7"},
		{"no header", "", "203.0.113.5:443", "203.0.113.5"},
		{"bare addr", "", "203.0.113.5", "203.0.113.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if got := clientIP(req); got != tc.want {
				t.Errorf("clientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestCorrelationIDMiddleware verifies assignment, echo, and propagation of
// a caller-supplied ID.
func TestCorrelationIDMiddleware(t *testing.T) {
	var seenCtxID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := r.Context().Value("correlation_id").(string); ok {
			seenCtxID = v
		}
	})
	handler := CorrelationIDMiddleware(zap.NewNop())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("generated correlation ID missing from response header")
	}
	if seenCtxID == "" {
		t.Error("correlation ID missing from request context")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-ID", "caller-supplied-id")
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Correlation-ID"); got != "caller-supplied-id" {
		t.Errorf("echoed correlation ID = %q, want caller-supplied-id", got)
	}
	if seenCtxID != "caller-supplied-id" {
		t.Errorf("context correlation ID = %q, want caller-supplied-id", seenCtxID)
	}
}

// TestWaitForInFlight verifies immediate return at zero and context-bounded
// waiting otherwise.
func TestWaitForInFlight(t *testing.T) {
	if err := WaitForInFlight(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("WaitForInFlight() at zero error = %v", err)
	}

	globalInFlight.Add(1)
	defer globalInFlight.Add(-1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := WaitForInFlight(ctx, time.Millisecond); err == nil {
		t.Error("WaitForInFlight() error = nil, want deadline exceeded with request in flight")
	}
}
