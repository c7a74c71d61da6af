package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perSecond float64, burst int) (*MessageRateLimiter, *time.Time) {
	rl := NewMessageRateLimiter(perSecond, burst, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllowBurstThenRefill(t *testing.T) {
	rl, now := newTestLimiter(1, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("u1"), "message %d", i)
	}
	assert.False(t, rl.Allow("u1"))
	assert.Equal(t, 1, rl.RetryAfterSeconds("u1"))

	*now = now.Add(time.Second)
	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
}

func TestUsersHaveSeparateBuckets(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow("u1"))
	assert.False(t, rl.Allow("u1"))
	assert.True(t, rl.Allow("u2"))
	assert.Equal(t, 0, rl.RetryAfterSeconds("unknown"))
}

func TestCleanupForgetsIdleUsers(t *testing.T) {
	rl, now := newTestLimiter(1, 1)
	defer rl.Stop()

	rl.Allow("u1")
	*now = now.Add(2 * time.Minute)
	rl.Allow("u2")
	rl.cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.buckets, "u1")
	assert.Contains(t, rl.buckets, "u2")
}
