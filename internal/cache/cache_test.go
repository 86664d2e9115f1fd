package cache

import (
	"context"
	"testing"
	"time"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

// fakeClock returns a controllable clock for deterministic expiry tests.
func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	now := start
	return func() time.Time { return now }, func(d time.Duration) { now = now.Add(d) }
}

// TestInMemoryCache_GetSet verifies that Set stores a forecast and Get
// returns it before the TTL elapses.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	clock, _ := fakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	c := NewInMemoryCacheWithClock(clock)

	val := models.AggregatedForecast{City: "臺北市", Coords: models.Coordinates{Lat: 25.032969, Lon: 121.565418}}
	if err := c.Set(ctx, "臺北市", val, 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "臺北市")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got.City != val.City || got.Coords != val.Coords {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestInMemoryCache_Get_Miss verifies a miss for an unknown key.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	c := NewInMemoryCache()
	_, ok, err := c.Get(context.Background(), "澎湖縣")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Expiry verifies lazy expiry: an entry is absent exactly
// once its age reaches the TTL, and is removed on that access.
func TestInMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	clock, advance := fakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	c := NewInMemoryCacheWithClock(clock)

	if err := c.Set(ctx, "高雄市", models.AggregatedForecast{City: "高雄市"}, 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	advance(10*time.Minute - time.Second)
	if _, ok, _ := c.Get(ctx, "高雄市"); !ok {
		t.Fatal("Get() just before TTL: ok = false, want true")
	}

	advance(time.Second)
	if _, ok, _ := c.Get(ctx, "高雄市"); ok {
		t.Error("Get() at exactly TTL: ok = true, want false")
	}
	if len(c.data) != 0 {
		t.Error("expired entry should be deleted on access")
	}
}

// TestInMemoryCache_Overwrite verifies that Set replaces an existing entry
// and restarts its TTL.
func TestInMemoryCache_Overwrite(t *testing.T) {
	ctx := context.Background()
	clock, advance := fakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	c := NewInMemoryCacheWithClock(clock)

	first := models.AggregatedForecast{City: "臺中市", LastUpdate: clock()}
	if err := c.Set(ctx, "臺中市", first, 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	advance(9 * time.Minute)
	second := models.AggregatedForecast{City: "臺中市", LastUpdate: clock()}
	if err := c.Set(ctx, "臺中市", second, 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// First entry would have expired here; the replacement must not have.
	advance(5 * time.Minute)
	got, ok, _ := c.Get(ctx, "臺中市")
	if !ok {
		t.Fatal("Get() after overwrite: ok = false, want true")
	}
	if !got.LastUpdate.Equal(second.LastUpdate) {
		t.Errorf("Get().LastUpdate = %v, want value from second Set", got.LastUpdate)
	}
}

// TestInMemoryCache_IndependentKeys verifies that expiry of one region does
// not affect another.
func TestInMemoryCache_IndependentKeys(t *testing.T) {
	ctx := context.Background()
	clock, advance := fakeClock(time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))
	c := NewInMemoryCacheWithClock(clock)

	_ = c.Set(ctx, "a", models.AggregatedForecast{City: "a"}, time.Minute)
	_ = c.Set(ctx, "b", models.AggregatedForecast{City: "b"}, time.Hour)

	advance(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("key a should have expired")
	}
	if _, ok, _ := c.Get(ctx, "b"); !ok {
		t.Error("key b should still be present")
	}
}
