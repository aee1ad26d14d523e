package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/chat"
	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
)

func TestGetOrCreateReturnsSameRowForSameSessionID(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := chat.NewSessionRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "chat-create-user")

	first, err := repo.GetOrCreate(dbc, u.ID, "sess-abc")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, types.ChatSessionActive, first.Status)

	second, err := repo.GetOrCreate(dbc, u.ID, "sess-abc")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.CountByUser(dbc, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListByUserNewestFirst(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := chat.NewSessionRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "chat-list-user")
	older := testutil.SeedChatSession(t, ctx, tx, u.ID, "sess-old")
	tx.Model(older).Update("start_time", time.Now().Add(-2*time.Hour))
	newer := testutil.SeedChatSession(t, ctx, tx, u.ID, "sess-new")

	out, err := repo.ListByUser(dbc, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, newer.ID, out[0].ID)
	assert.Equal(t, older.ID, out[1].ID)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	sessions := chat.NewSessionRepo(tx, testutil.Logger(t))
	messages := chat.NewMessageRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "chat-delete-user")
	s := testutil.SeedChatSession(t, ctx, tx, u.ID, "sess-del")
	_, err := messages.Create(dbc, []*types.ChatMessage{
		{ID: uuid.New(), SessionRowID: s.ID, Role: types.ChatRoleUser, Content: "hi", Timestamp: time.Now()},
		{ID: uuid.New(), SessionRowID: s.ID, Role: types.ChatRoleAssistant, Content: "hello", Timestamp: time.Now()},
	})
	require.NoError(t, err)

	require.NoError(t, sessions.Delete(dbc, s.ID))

	gone, err := sessions.GetByRowID(dbc, s.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	n, err := messages.CountBySession(dbc, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestListBySessionOldestFirst(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	messages := chat.NewMessageRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "chat-order-user")
	s := testutil.SeedChatSession(t, ctx, tx, u.ID, "sess-order")
	now := time.Now()
	_, err := messages.Create(dbc, []*types.ChatMessage{
		{ID: uuid.New(), SessionRowID: s.ID, Role: types.ChatRoleAssistant, Content: "second", Timestamp: now.Add(time.Millisecond)},
		{ID: uuid.New(), SessionRowID: s.ID, Role: types.ChatRoleUser, Content: "first", Timestamp: now},
	})
	require.NoError(t, err)

	out, err := messages.ListBySession(dbc, s.ID, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Content)
	assert.Equal(t, "second", out[1].Content)
}
