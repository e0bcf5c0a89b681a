package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T, rpm int) (*TokenBucketLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewIPRateLimiter(rpm)
	l.now = clock.Now
	t.Cleanup(l.Close)
	return l, clock
}

func TestTokenBucketLimiter_AllowsBurstThenBlocks(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenBucketLimiter_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 1)

	ok, _ := l.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_Refills(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t, 60)

	for i := 0; i < 60; i++ {
		ok, _ := l.Allow(ctx, "k")
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "k")
	require.False(t, ok)

	clock.Advance(time.Second)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	// Refill never exceeds the bucket size
	clock.Advance(time.Hour)
	for i := 0; i < 60; i++ {
		ok, _ := l.Allow(ctx, "k")
		require.True(t, ok)
	}
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)
}

func TestTokenBucketLimiter_Reset(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLimiter(t, 1)

	_, _ = l.Allow(ctx, "k")
	ok, _ := l.Allow(ctx, "k")
	require.False(t, ok)

	require.NoError(t, l.Reset(ctx, "k"))
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestTokenBucketLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	ctx := context.Background()
	l, clock := newTestLimiter(t, 5)

	_, _ = l.Allow(ctx, "idle")
	clock.Advance(2 * time.Hour)
	l.cleanup()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.buckets)
}
