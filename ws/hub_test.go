package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/repository"
	"github.com/akinalp/teamchat/services"
)

const testRoom = "workspace-acme"

type testServer struct {
	hub *Hub
	srv *httptest.Server
}

func newTestServer(t *testing.T, store repository.SessionStore, tokens TokenValidator, requireToken bool) *testServer {
	t.Helper()
	hub := NewHub(store)
	mux := http.NewServeMux()
	h := NewHandler(hub, tokens, requireToken)
	mux.HandleFunc("GET /parties/chat/{room}", h.HandleConnection)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		hub.Shutdown(ctx)
		srv.Close()
	})
	return &testServer{hub: hub, srv: srv}
}

func (s *testServer) url(room, query string) string {
	u := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/parties/chat/" + room
	if query != "" {
		u += "?" + query
	}
	return u
}

func (s *testServer) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url(testRoom, query), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUsers(t *testing.T, conn *websocket.Conn) []models.User {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg models.PresenceMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	require.Equal(t, models.PresenceSnapshot, msg.Type)

	var payload models.PresencePayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	return payload.Users
}

func userIDs(users []models.User) []string {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids
}

func addUser(t *testing.T, conn *websocket.Conn, id string) {
	t.Helper()
	frame := `{"type":"add-user","payload":{"id":"` + id + `","displayName":"` + id + `"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestPresenceBroadcastsFullSnapshots(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "")
	assert.Empty(t, readUsers(t, a))
	addUser(t, a, "u1")
	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, a)))

	b := s.dial(t, "")
	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, b)))
	addUser(t, b, "u2")
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, a)))
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, b)))

	c := s.dial(t, "")
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, c)))
	addUser(t, c, "u3")
	for _, conn := range []*websocket.Conn{a, b, c} {
		assert.Equal(t, []string{"u1", "u2", "u3"}, userIDs(readUsers(t, conn)))
	}

	c.Close()
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, a)))
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, b)))
	assert.Equal(t, []string{"u1", "u2"}, userIDs(s.hub.Members(testRoom)))
}

func TestPresenceRemoveUser(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "")
	readUsers(t, a)
	addUser(t, a, "u1")
	readUsers(t, a)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"remove-user"}`)))
	assert.Empty(t, readUsers(t, a))
}

func TestPresenceDropsMalformedFrames(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "")
	readUsers(t, a)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{{{`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"add-user","payload":{"displayName":"no id"}}`)))
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)))
	addUser(t, a, "u1")

	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, a)))
}

func TestPresenceDeduplicatesSameUser(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "")
	readUsers(t, a)
	addUser(t, a, "u1")
	readUsers(t, a)

	b := s.dial(t, "")
	readUsers(t, b)
	addUser(t, b, "u1")

	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, a)))
	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, b)))
}

func TestPresenceRoomStopsWhenEmpty(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "")
	readUsers(t, a)
	assert.Equal(t, 1, s.hub.Rooms())

	a.Close()
	assert.Eventually(t, func() bool { return s.hub.Rooms() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestPresenceResumeRestoresUser(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := repository.NewRedisPresenceStoreWithClient(client, time.Hour)
	s := newTestServer(t, store, nil, false)

	a := s.dial(t, "_pk=tab-1")
	readUsers(t, a)
	addUser(t, a, "u1")
	readUsers(t, a)
	assert.Eventually(t, func() bool { return mr.Exists("presence:session:tab-1") }, 3*time.Second, 10*time.Millisecond)

	a.Close()
	assert.Eventually(t, func() bool { return len(s.hub.Members(testRoom)) == 0 }, 3*time.Second, 10*time.Millisecond)

	resumed := s.dial(t, "_pk=tab-1")
	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, resumed)))

	require.NoError(t, resumed.WriteMessage(websocket.TextMessage, []byte(`{"type":"remove-user"}`)))
	assert.Empty(t, readUsers(t, resumed))
	assert.Eventually(t, func() bool { return !mr.Exists("presence:session:tab-1") }, 3*time.Second, 10*time.Millisecond)
}

// stallingStore, release kapanana kadar her yazımı bekletir.
type stallingStore struct {
	release chan struct{}

	mu   sync.Mutex
	puts []string
}

func (s *stallingStore) Put(ctx context.Context, state models.SessionState) error {
	select {
	case <-s.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	s.puts = append(s.puts, state.User.ID)
	s.mu.Unlock()
	return nil
}

func (s *stallingStore) Get(context.Context, string) (*models.SessionState, error) {
	return nil, pkg.ErrNotFound
}

func (s *stallingStore) Delete(context.Context, string) error { return nil }

func (s *stallingStore) DeleteExpired(context.Context) (int64, error) { return 0, nil }

func (s *stallingStore) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.puts...)
}

func TestPresenceSlowStoreDoesNotBlockRoom(t *testing.T) {
	store := &stallingStore{release: make(chan struct{})}
	s := newTestServer(t, store, nil, false)

	a := s.dial(t, "")
	readUsers(t, a)
	b := s.dial(t, "")
	readUsers(t, b)

	start := time.Now()
	addUser(t, a, "u1")
	readUsers(t, a)
	readUsers(t, b)
	addUser(t, b, "u2")
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, a)))
	assert.Equal(t, []string{"u1", "u2"}, userIDs(readUsers(t, b)))
	assert.Less(t, time.Since(start), storeTimeout)
	assert.Empty(t, store.written())

	close(store.release)
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"u1", "u2"}, store.written())
	}, 3*time.Second, 10*time.Millisecond)
}

func TestPresenceRejectsLiveDuplicateID(t *testing.T) {
	s := newTestServer(t, nil, nil, false)

	a := s.dial(t, "_pk=same")
	readUsers(t, a)

	dup := s.dial(t, "_pk=same")
	require.NoError(t, dup.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := dup.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)

	addUser(t, a, "u1")
	assert.Equal(t, []string{"u1"}, userIDs(readUsers(t, a)))
}

func TestPresenceAdmission(t *testing.T) {
	tokens := services.NewTokenService("secret", "teamchat", time.Minute)
	s := newTestServer(t, nil, tokens, true)

	_, resp, err := websocket.DefaultDialer.Dial(s.url("lobby", ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(s.url(testRoom, ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(s.url(testRoom, "token=garbage"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := tokens.Issue(&models.User{ID: "u1"})
	require.NoError(t, err)
	conn := s.dial(t, "token="+token)
	assert.Empty(t, readUsers(t, conn))
}

func TestHubShutdownClosesConnections(t *testing.T) {
	hub := NewHub(nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /parties/chat/{room}", NewHandler(hub, nil, false).HandleConnection)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/parties/chat/"+testRoom, nil)
	require.NoError(t, err)
	defer conn.Close()
	readUsers(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Shutdown(ctx))
	assert.Equal(t, 0, hub.Rooms())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	late, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/parties/chat/"+testRoom, nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
