package repository

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/pkg"
)

func ids(t *testing.T, repo MessageRepository, cursor string, limit int) []string {
	t.Helper()
	items, err := repo.ListTopLevel(context.Background(), "c1", cursor, limit)
	require.NoError(t, err)
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func TestListTopLevelPagesBackward(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	for i := 1; i <= 90; i++ {
		require.NoError(t, repo.Create(ctx, newRecord(strconv.Itoa(i), i, nil)))
	}

	first := ids(t, repo, "", 30)
	require.Len(t, first, 30)
	assert.Equal(t, "90", first[0])
	assert.Equal(t, "61", first[29])

	second := ids(t, repo, "61", 30)
	require.Len(t, second, 30)
	assert.Equal(t, "60", second[0])
	assert.Equal(t, "31", second[29])

	third := ids(t, repo, "31", 30)
	require.Len(t, third, 30)
	assert.Equal(t, "1", third[29])

	assert.Empty(t, ids(t, repo, "1", 30))
}

func TestListTopLevelTieBreaksOnID(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	// Aynı created_at: (created_at, id) sırası sayfa sınırında kayıp/tekrar bırakmaz.
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, repo.Create(ctx, newRecord(id, 1, nil)))
	}

	assert.Equal(t, []string{"d", "c"}, ids(t, repo, "", 2))
	assert.Equal(t, []string{"b", "a"}, ids(t, repo, "c", 2))
}

func TestListTopLevelUnknownCursor(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := NewSQLiteMessageRepo(db.Conn)

	_, err := repo.ListTopLevel(context.Background(), "c1", "missing", 30)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestRepliesAreCountedAndExcludedFromFeed(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("p", 1, nil)))
	parent := "p"
	require.NoError(t, repo.Create(ctx, newRecord("r2", 3, &parent)))
	require.NoError(t, repo.Create(ctx, newRecord("r1", 2, &parent)))

	assert.Equal(t, []string{"p"}, ids(t, repo, "", 30))

	got, err := repo.GetByID(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 2, got.RepliesCount)
	assert.Nil(t, got.ThreadID)

	replies, err := repo.ListThread(ctx, "p")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "r1", replies[0].ID)
	assert.Equal(t, "r2", replies[1].ID)
	require.NotNil(t, replies[0].ThreadID)
	assert.Equal(t, "p", *replies[0].ThreadID)
}

func TestUpdateContent(t *testing.T) {
	db := newTestDB(t)
	seedChannel(t, db)
	repo := NewSQLiteMessageRepo(db.Conn)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newRecord("m1", 1, nil)))

	later := baseTime.Add(time.Hour)
	require.NoError(t, repo.UpdateContent(ctx, "m1", `{"text":"edited"}`, later))

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, `{"text":"edited"}`, got.Content)
	assert.True(t, got.UpdatedAt.Equal(later))

	assert.ErrorIs(t, repo.UpdateContent(ctx, "nope", "x", later), pkg.ErrNotFound)
	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
