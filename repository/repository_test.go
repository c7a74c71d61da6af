package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/teamchat/database"
	"github.com/akinalp/teamchat/models"
)

// newTestDB, test başına izole bir in-memory SQLite açar.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), database.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// seedChannel, w1 workspace'i ve c1 kanalını oluşturur.
func seedChannel(t *testing.T, db *database.DB) {
	t.Helper()
	ctx := context.Background()
	channels := NewSQLiteChannelRepo(db.Conn)
	require.NoError(t, channels.CreateWorkspace(ctx, "w1", "Acme"))
	require.NoError(t, channels.Create(ctx, &models.Channel{ID: "c1", WorkspaceID: "w1", Name: "general"}))
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRecord(id string, seq int, threadID *string) *models.MessageRecord {
	at := baseTime.Add(time.Duration(seq) * time.Second)
	return &models.MessageRecord{
		ID:         id,
		ChannelID:  "c1",
		ThreadID:   threadID,
		Content:    `{"type":"doc","text":"` + id + `"}`,
		AuthorID:   "u1",
		AuthorName: "Ada",
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}
