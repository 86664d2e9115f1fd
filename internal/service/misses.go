package service

import "sync"

// missTracker counts concurrent miss-path fetches per region. A count above
// one on Begin means multiple requests missed the same key at once — the
// stampede the coalescer exists to absorb.
type missTracker struct {
	mu     sync.Mutex
	active map[string]int
}

func newMissTracker() *missTracker {
	return &missTracker{active: make(map[string]int)}
}

// Begin records a miss for key and returns the concurrent count including
// this one. Pair with a deferred End.
func (mt *missTracker) Begin(key string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.active[key]++
	return mt.active[key]
}

// End records completion of a miss for key.
func (mt *missTracker) End(key string) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if n := mt.active[key]; n > 1 {
		mt.active[key] = n - 1
	} else {
		delete(mt.active, key)
	}
}
