package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/client"
	"github.com/akinalp/teamchat/config"
	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
	"github.com/akinalp/teamchat/pkg"
	"github.com/akinalp/teamchat/streamsync"
)

var (
	ada  = models.User{ID: "u1", DisplayName: "Ada", Email: "ada@example.com"}
	alan = models.User{ID: "u2", DisplayName: "Alan", Email: "alan@example.com"}
)

type testApp struct {
	*app
	srv       *httptest.Server
	workspace string
	channel   string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
		JWT:    config.JWTConfig{Secret: "test-secret", Issuer: "teamchat", AccessTokenExpiry: time.Hour},
		Presence: config.PresenceConfig{
			Store:        config.PresenceStoreSQLite,
			SessionTTL:   time.Hour,
			RequireToken: true,
		},
	}

	db, err := database.New(fmt.Sprintf("file:e2e_%s?mode=memory&cache=shared", t.Name()), database.Migrations())
	require.NoError(t, err)

	a, err := newApp(cfg, db.Conn)
	require.NoError(t, err)

	srv := httptest.NewServer(a.handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.hub.Shutdown(ctx)
		srv.Close()
		a.Close()
		db.Close()
	})

	ctx := context.Background()
	ws, err := a.svcs.Channel.CreateWorkspace(ctx, "acme")
	require.NoError(t, err)
	ch, err := a.svcs.Channel.Create(ctx, ws, "general")
	require.NoError(t, err)

	return &testApp{app: a, srv: srv, workspace: ws, channel: ch.ID}
}

func (ta *testApp) token(t *testing.T, u models.User) string {
	t.Helper()
	tok, err := ta.svcs.Token.Issue(&u)
	require.NoError(t, err)
	return tok
}

func (ta *testApp) messages(t *testing.T, u models.User) *client.MessagesClient {
	return client.NewMessagesClient(ta.srv.URL, ta.workspace, ta.token(t, u), ta.srv.Client())
}

func (ta *testApp) seed(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := ta.svcs.Message.Create(context.Background(), ta.workspace, &ada, &models.CreateMessageRequest{
			ChannelID: ta.channel,
			Content:   fmt.Sprintf("seed %d", i),
		})
		require.NoError(t, err)
	}
}

func get(t *testing.T, url, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestOpsAndIdentityRoutes(t *testing.T) {
	ta := newTestApp(t)

	status, body := get(t, ta.srv.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"status":"ok"`)

	status, _ = get(t, ta.srv.URL+"/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = get(t, ta.srv.URL+"/api/me", "garbage")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = get(t, ta.srv.URL+"/api/me", ta.token(t, ada))
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"displayName":"Ada"`)

	status, body = get(t, ta.srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "teamchat_presence_rooms")
}

func TestStreamSyncAgainstServer(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, 35)
	ctx := context.Background()

	mc := ta.messages(t, ada)
	cache := streamsync.NewCache()
	fetcher := streamsync.NewFetcher(cache, mc, 20)
	coord := streamsync.NewCoordinator(cache, fetcher, mc, ada)
	key := streamsync.ChannelKey(ta.channel)

	// Geriye doğru iki sayfa: 20 + 15, sonra dolu değil.
	require.NoError(t, fetcher.FetchOlder(ctx, key))
	assert.Len(t, cache.Entries(key), 20)
	assert.True(t, cache.HasMore(key))
	require.NoError(t, fetcher.FetchOlder(ctx, key))
	entries := cache.Entries(key)
	require.Len(t, entries, 35)
	assert.False(t, cache.HasMore(key))
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].Record.CreatedAt.Before(entries[i-1].Record.CreatedAt), "chronological at %d", i)
	}

	sent, err := coord.Send(ctx, ta.channel, "hello", nil)
	require.NoError(t, err)
	entries = cache.Entries(key)
	last := entries[len(entries)-1]
	assert.Equal(t, sent.ID, last.Record.ID)
	assert.Equal(t, streamsync.Confirmed, last.State)
	assert.Equal(t, 0, coord.Pending(key))

	res, err := coord.Edit(ctx, sent.ID, "hello, edited")
	require.NoError(t, err)
	assert.True(t, res.CanEdit)
	e, ok := cache.Find(key, sent.ID)
	require.True(t, ok)
	assert.Equal(t, "hello, edited", e.Record.Content)

	_, err = coord.ToggleReaction(ctx, sent.ID, "👍")
	require.NoError(t, err)
	e, _ = cache.Find(key, sent.ID)
	assert.Equal(t, []models.ReactionGroup{{Emoji: "👍", Count: 1, ReactedByMe: true}}, e.Record.Reactions)

	require.NoError(t, fetcher.LoadThread(ctx, sent.ID))
	reply, err := coord.Reply(ctx, ta.channel, sent.ID, "first reply", nil)
	require.NoError(t, err)

	threadKey := streamsync.ThreadKey(sent.ID)
	thread := cache.Entries(threadKey)
	require.Len(t, thread, 1)
	assert.Equal(t, reply.ID, thread[0].Record.ID)
	parent, ok := cache.Parent(threadKey)
	require.True(t, ok)
	assert.Equal(t, 1, parent.Record.RepliesCount)
	e, _ = cache.Find(key, sent.ID)
	assert.Equal(t, 1, e.Record.RepliesCount)

	// Sunucu görüşü aynı.
	listing, err := mc.GetThread(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Parent.RepliesCount)
	require.Len(t, listing.Messages, 1)
}

func TestRejectedEditRollsBackAgainstServer(t *testing.T) {
	ta := newTestApp(t)
	ta.seed(t, 3)
	ctx := context.Background()

	mc := ta.messages(t, alan)
	cache := streamsync.NewCache()
	fetcher := streamsync.NewFetcher(cache, mc, 30)
	coord := streamsync.NewCoordinator(cache, fetcher, mc, alan)
	key := streamsync.ChannelKey(ta.channel)

	require.NoError(t, fetcher.FetchOlder(ctx, key))
	target := cache.Entries(key)[0]

	_, err := coord.Edit(ctx, target.Record.ID, "not yours")
	require.Error(t, err)
	assert.True(t, streamsync.IsRejected(err))
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	e, ok := cache.Find(key, target.Record.ID)
	require.True(t, ok)
	assert.Equal(t, target.Record.Content, e.Record.Content)
	assert.Equal(t, streamsync.Confirmed, e.State)

	select {
	case f := <-coord.Failures():
		assert.Equal(t, streamsync.OpEdit, f.Op)
		assert.Equal(t, key, f.Key)
	case <-time.After(time.Second):
		t.Fatal("no failure signal")
	}
}

func TestForeignWorkspaceIsRejected(t *testing.T) {
	ta := newTestApp(t)
	ctx := context.Background()

	other, err := ta.svcs.Channel.CreateWorkspace(ctx, "other")
	require.NoError(t, err)

	mc := client.NewMessagesClient(ta.srv.URL, other, ta.token(t, ada), ta.srv.Client())
	_, err = mc.ListMessages(ctx, ta.channel, "", 10)
	assert.ErrorIs(t, err, pkg.ErrForbidden)

	_, err = mc.ListMessages(ctx, ta.channel, "", 101)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestMessageCreateIsRateLimited(t *testing.T) {
	ta := newTestApp(t)
	mc := ta.messages(t, ada)

	var lastErr error
	for i := 0; i < 8 && lastErr == nil; i++ {
		_, lastErr = mc.CreateMessage(context.Background(), models.CreateMessageRequest{
			ChannelID: ta.channel,
			Content:   fmt.Sprintf("spam %d", i),
		})
	}
	assert.ErrorIs(t, lastErr, client.ErrRateLimited)
}

func TestPresenceThroughWiredServer(t *testing.T) {
	ta := newTestApp(t)

	start := func(u models.User) (*client.PresenceClient, context.CancelFunc) {
		c, err := client.NewPresenceClient(client.PresenceConfig{
			ServerURL:         ta.srv.URL,
			WorkspaceID:       ta.workspace,
			Token:             ta.token(t, u),
			ReconnectInterval: 20 * time.Millisecond,
		})
		require.NoError(t, err)
		require.NoError(t, c.SetUser(&u))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			c.Run(ctx)
		}()
		t.Cleanup(func() {
			cancel()
			<-done
		})
		return c, cancel
	}

	a, _ := start(ada)
	b, stopB := start(alan)

	ids := func(users []models.User) map[string]bool {
		out := map[string]bool{}
		for _, u := range users {
			out[u.ID] = true
		}
		return out
	}

	assert.Eventually(t, func() bool {
		return len(ids(a.Users())) == 2 && len(ids(b.Users())) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, ta.hub.Rooms())

	stopB()
	assert.Eventually(t, func() bool {
		got := ids(a.Users())
		return len(got) == 1 && got["u1"]
	}, 2*time.Second, 10*time.Millisecond)
}
