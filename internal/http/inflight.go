package http

import (
	"context"
	"sync/atomic"
	"time"
)

// globalInFlight counts requests currently being served; maintained by
// MetricsMiddleware and consulted during graceful shutdown.
var globalInFlight atomic.Int64

// InFlightCount returns the current number of in-flight requests.
func InFlightCount() int64 {
	return globalInFlight.Load()
}

// WaitForInFlight blocks until in-flight requests reach zero or ctx is done,
// polling at checkInterval.
func WaitForInFlight(ctx context.Context, checkInterval time.Duration) error {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()
	for {
		if InFlightCount() <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
