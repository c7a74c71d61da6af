package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*RedisPresenceStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisPresenceStore("redis://"+s.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, s
}

func TestRedisPresenceStoreRoundTrip(t *testing.T) {
	store, s := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	user := &models.User{ID: "u1", DisplayName: "Ada", AvatarURL: "https://cdn.example/a.png"}
	require.NoError(t, store.Put(ctx, models.SessionState{ConnectionID: "conn-1", RoomID: "workspace-1", User: user}))

	assert.True(t, s.Exists(presenceKeyPrefix+"conn-1"))
	assert.Equal(t, time.Hour, s.TTL(presenceKeyPrefix+"conn-1"))

	got, err := store.Get(ctx, "conn-1")
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ada", got.User.DisplayName)
	assert.Equal(t, "workspace-1", got.RoomID)

	require.NoError(t, store.Delete(ctx, "conn-1"))
	_, err = store.Get(ctx, "conn-1")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestRedisPresenceStoreExpiry(t *testing.T) {
	store, s := setupTestRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.SessionState{ConnectionID: "conn-1", RoomID: "workspace-1"}))
	s.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "conn-1")
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNewRedisPresenceStoreBadURL(t *testing.T) {
	_, err := NewRedisPresenceStore("://nope", time.Minute)
	assert.Error(t, err)
}
