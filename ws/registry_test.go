package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
)

func TestRegistryAttachRejectsLiveID(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Attach("workspace-1", "c1"))

	err := reg.Attach("workspace-1", "c1")
	assert.ErrorIs(t, err, pkg.ErrInvalidState)
	err = reg.Attach("workspace-2", "c1")
	assert.ErrorIs(t, err, pkg.ErrInvalidState)

	assert.True(t, reg.Detach("c1"))
	assert.False(t, reg.Detach("c1"))
	assert.NoError(t, reg.Attach("workspace-1", "c1"))
}

func TestRegistrySessionState(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Attach("workspace-1", "c1"))

	s, ok := reg.Session("c1")
	require.True(t, ok)
	assert.Equal(t, StateActive, s.State)
	assert.Nil(t, s.User)

	require.NoError(t, reg.SetUser("c1", &models.User{ID: "u1"}))
	s, _ = reg.Session("c1")
	assert.Equal(t, "u1", s.User.ID)

	assert.ErrorIs(t, reg.SetUser("ghost", &models.User{ID: "u1"}), pkg.ErrNotFound)
	assert.Equal(t, "closed", StateClosed.String())
}

func TestRegistryMembersDeduplicateLastAttachedWins(t *testing.T) {
	reg := NewRegistry()
	room := "workspace-1"
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		require.NoError(t, reg.Attach(room, id))
	}

	require.NoError(t, reg.SetUser("c1", &models.User{ID: "u1", DisplayName: "first tab"}))
	require.NoError(t, reg.SetUser("c2", &models.User{ID: "u2"}))
	require.NoError(t, reg.SetUser("c3", &models.User{ID: "u1", DisplayName: "second tab"}))
	// c4 kullanıcısız kalır.

	members := reg.MembersOf(room)
	require.Len(t, members, 2)
	assert.Equal(t, "u2", members[0].ID)
	assert.Equal(t, "u1", members[1].ID)
	assert.Equal(t, "second tab", members[1].DisplayName)

	reg.Detach("c3")
	members = reg.MembersOf(room)
	require.Len(t, members, 2)
	assert.Equal(t, "u1", members[0].ID)
	assert.Equal(t, "first tab", members[0].DisplayName)

	assert.Equal(t, 3, reg.RoomSize(room))
	assert.Empty(t, reg.MembersOf("workspace-2"))
}

func TestRegistrySnapshotIgnoresHistory(t *testing.T) {
	reg := NewRegistry()
	room := "workspace-1"
	require.NoError(t, reg.Attach(room, "c1"))

	for i := 0; i < 50; i++ {
		require.NoError(t, reg.SetUser("c1", &models.User{ID: "u1"}))
		require.NoError(t, reg.SetUser("c1", nil))
	}
	assert.Empty(t, reg.MembersOf(room))

	require.NoError(t, reg.SetUser("c1", &models.User{ID: "u1"}))
	assert.Equal(t, []models.User{{ID: "u1"}}, reg.MembersOf(room))
}

func TestRegistryRoomsAreIsolated(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Attach("workspace-1", "a"))
	require.NoError(t, reg.Attach("workspace-2", "b"))
	require.NoError(t, reg.SetUser("a", &models.User{ID: "u1"}))
	require.NoError(t, reg.SetUser("b", &models.User{ID: "u2"}))

	assert.Equal(t, []models.User{{ID: "u1"}}, reg.MembersOf("workspace-1"))
	assert.Equal(t, []models.User{{ID: "u2"}}, reg.MembersOf("workspace-2"))
	assert.Equal(t, 2, reg.Len())
}

func TestDecodeInbound(t *testing.T) {
	msg, err := decodeInbound([]byte(`{"type":"add-user","payload":{"id":"u1","displayName":"Ada"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.PresenceAddUser, msg.Type)
	assert.Equal(t, "Ada", msg.User.DisplayName)

	msg, err = decodeInbound([]byte(`{"type":"remove-user"}`))
	require.NoError(t, err)
	assert.Equal(t, models.PresenceRemoveUser, msg.Type)

	for _, raw := range []string{
		`not json`,
		`{"type":"add-user"}`,
		`{"type":"add-user","payload":{"displayName":"no id"}}`,
		`{"type":"add-user","payload":"x"}`,
		`{"type":"presence","payload":{"users":[]}}`,
	} {
		_, err := decodeInbound([]byte(raw))
		assert.ErrorIs(t, err, errMalformed, raw)
	}
}

func TestEncodeSnapshotNeverNull(t *testing.T) {
	frame, err := encodeSnapshot(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"presence","payload":{"users":[]}}`, string(frame))
}
