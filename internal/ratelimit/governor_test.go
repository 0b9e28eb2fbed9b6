package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock gives tests full control over the governor's notion of now.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time        { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGovernor(idleTimeout time.Duration) (*Governor, *fixedClock) {
	clock := &fixedClock{t: time.Unix(1_700_000_000, 0)}
	g := NewGovernor(idleTimeout)
	g.now = clock.now
	return g, clock
}

func TestAllowExhaustsCapacity(t *testing.T) {
	g, _ := newTestGovernor(time.Hour)

	for i := 0; i < 5; i++ {
		assert.True(t, g.Allow("u1", 5, time.Minute, 1), "call %d should be admitted", i+1)
	}
	assert.False(t, g.Allow("u1", 5, time.Minute, 1), "6th call must be denied")
}

func TestAllowRefillsOverWindow(t *testing.T) {
	g, clock := newTestGovernor(time.Hour)

	for i := 0; i < 5; i++ {
		require.True(t, g.Allow("u1", 5, time.Minute, 1))
	}
	require.False(t, g.Allow("u1", 5, time.Minute, 1))

	// a full window restores full capacity
	clock.advance(time.Minute)
	for i := 0; i < 5; i++ {
		assert.True(t, g.Allow("u1", 5, time.Minute, 1))
	}
}

func TestAllowPartialRefill(t *testing.T) {
	g, clock := newTestGovernor(time.Hour)

	for i := 0; i < 5; i++ {
		require.True(t, g.Allow("u1", 5, time.Minute, 1))
	}

	// 12 seconds refills exactly one token at 5 tokens/minute
	clock.advance(12 * time.Second)
	assert.True(t, g.Allow("u1", 5, time.Minute, 1))
	assert.False(t, g.Allow("u1", 5, time.Minute, 1))
}

func TestKeysAreIndependent(t *testing.T) {
	g, _ := newTestGovernor(time.Hour)

	for i := 0; i < 3; i++ {
		require.True(t, g.Allow("u1", 3, time.Minute, 1))
	}
	require.False(t, g.Allow("u1", 3, time.Minute, 1))
	assert.True(t, g.Allow("u2", 3, time.Minute, 1), "other callers keep their own budget")
}

func TestWaitTime(t *testing.T) {
	g, _ := newTestGovernor(time.Hour)

	assert.Equal(t, time.Duration(0), g.WaitTime("u1", 5, time.Minute, 1))

	for i := 0; i < 5; i++ {
		require.True(t, g.Allow("u1", 5, time.Minute, 1))
	}
	wait := g.WaitTime("u1", 5, time.Minute, 1)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 12*time.Second)

	// WaitTime never consumes tokens
	assert.Equal(t, wait, g.WaitTime("u1", 5, time.Minute, 1))
}

func TestZeroCapacityAdmitsEverything(t *testing.T) {
	g, _ := newTestGovernor(time.Hour)
	assert.True(t, g.Allow("u1", 0, time.Minute, 1))
	assert.Equal(t, time.Duration(0), g.WaitTime("u1", 0, time.Minute, 1))
	assert.Equal(t, 0, g.Len())
}

func TestEvictRemovesIdleFullBuckets(t *testing.T) {
	g, clock := newTestGovernor(time.Hour)

	require.True(t, g.Allow("idle", 5, time.Minute, 1))
	require.Equal(t, 1, g.Len())

	// not yet past the idle timeout
	clock.advance(30 * time.Minute)
	assert.Equal(t, 0, g.Evict(clock.now()))

	// past the timeout and fully refilled
	clock.advance(31 * time.Minute)
	assert.Equal(t, 1, g.Evict(clock.now()))
	assert.Equal(t, 0, g.Len())
}

func TestEvictKeepsDrainedBuckets(t *testing.T) {
	g, clock := newTestGovernor(time.Minute)

	for i := 0; i < 5; i++ {
		require.True(t, g.Allow("busy", 5, 10*time.Hour, 1))
	}

	// idle long past the timeout but the bucket has barely refilled;
	// evicting it would hand the caller a fresh budget
	clock.advance(2 * time.Minute)
	assert.Equal(t, 0, g.Evict(clock.now()))
	assert.Equal(t, 1, g.Len())
}
