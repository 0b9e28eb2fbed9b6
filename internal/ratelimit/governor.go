package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a bucket must sit untouched before the
// eviction sweep will consider removing it.
const DefaultIdleTimeout = time.Hour

// evictFillRatio: only buckets at or above this fraction of capacity are
// evicted. Removing a drained bucket would reset a still-active throttle.
const evictFillRatio = 0.9

// bucket is one token bucket. Each bucket carries its own lock so callers for
// different keys never contend.
type bucket struct {
	mu           sync.Mutex
	capacity     float64
	refillPerSec float64
	tokens       float64
	lastRefill   time.Time
	lastUsed     time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * b.refillPerSec
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Governor is a per-key token-bucket throttle shared by all submission paths.
// The bucket map is the only concurrently mutated structure; its lock is held
// only for lookup and insert.
type Governor struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	idleTimeout time.Duration
	now         func() time.Time
}

// NewGovernor builds a governor. A non-positive idleTimeout falls back to
// DefaultIdleTimeout.
func NewGovernor(idleTimeout time.Duration) *Governor {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Governor{
		buckets:     make(map[string]*bucket),
		idleTimeout: idleTimeout,
		now:         time.Now,
	}
}

// bucketKey combines key, capacity and window so the same logical caller can
// hold independent buckets for different limited operations.
func bucketKey(key string, capacity int, window time.Duration) string {
	return fmt.Sprintf("%s|%d|%d", key, capacity, int(window.Seconds()))
}

func (g *Governor) get(key string, capacity int, window time.Duration) *bucket {
	id := bucketKey(key, capacity, window)
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.buckets[id]
	if !ok {
		now := g.now()
		b = &bucket{
			capacity:     float64(capacity),
			refillPerSec: float64(capacity) / window.Seconds(),
			tokens:       float64(capacity),
			lastRefill:   now,
			lastUsed:     now,
		}
		g.buckets[id] = b
	}
	return b
}

// Allow consumes cost tokens from the bucket when available and reports
// whether the call is admitted.
func (g *Governor) Allow(key string, capacity int, window time.Duration, cost float64) bool {
	if capacity <= 0 || window <= 0 {
		return true
	}
	b := g.get(key, capacity, window)
	now := g.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	b.lastUsed = now
	if b.tokens >= cost {
		b.tokens -= cost
		return true
	}
	return false
}

// WaitTime reports how long the caller must wait before cost tokens will be
// available. Zero means the call would be admitted right now. No tokens are
// consumed.
func (g *Governor) WaitTime(key string, capacity int, window time.Duration, cost float64) time.Duration {
	if capacity <= 0 || window <= 0 {
		return 0
	}
	b := g.get(key, capacity, window)
	now := g.now()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.refill(now)
	if b.tokens >= cost {
		return 0
	}
	missing := cost - b.tokens
	return time.Duration(missing / b.refillPerSec * float64(time.Second))
}

// Evict removes buckets untouched past the idle timeout that have refilled to
// at least 90% capacity, and returns how many were removed. Empty or partially
// drained buckets are kept.
func (g *Governor) Evict(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, b := range g.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastUsed) > g.idleTimeout
		b.refill(now)
		full := b.tokens >= b.capacity*evictFillRatio
		b.mu.Unlock()
		if idle && full {
			delete(g.buckets, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live buckets.
func (g *Governor) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buckets)
}
