package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpiry(t *testing.T) {
	c := New[string, int](time.Minute, 0)
	defer c.Close()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.evictExpired()
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheGetOrLoad(t *testing.T) {
	c := New[string, string](time.Minute, 0)
	defer c.Close()

	calls := 0
	load := func() (string, error) {
		calls++
		return "ws-1", nil
	}

	v, err := c.GetOrLoad("ch-1", load)
	require.NoError(t, err)
	assert.Equal(t, "ws-1", v)

	v, err = c.GetOrLoad("ch-1", load)
	require.NoError(t, err)
	assert.Equal(t, "ws-1", v)
	assert.Equal(t, 1, calls)
}

func TestTTLCacheDoesNotCacheErrors(t *testing.T) {
	c := New[string, string](time.Minute, 0)
	defer c.Close()

	boom := errors.New("boom")
	_, err := c.GetOrLoad("k", func() (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	c.Delete("k")
	c.Close()
	c.Close()
}
