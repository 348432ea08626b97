package repository

import (
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatCreateActivates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ChatRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")

	active, err := repo.GetActive(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	first, err := repo.Create(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultChatTitle, first.Title)

	second, err := repo.Create(ctx, u.ID, "Careers in IT")
	require.NoError(t, err)

	active, err = repo.GetActive(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	ok, err := repo.SetActive(ctx, u.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err = repo.GetActive(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.ID)
}

func TestChatOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ChatRepository{DB: db}
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", "a@example.com")
	bob := testutil.CreateUser(t, db, "bob", "b@example.com")

	chat, err := repo.Create(ctx, alice.ID, "mine")
	require.NoError(t, err)

	ok, err := repo.SetActive(ctx, bob.ID, chat.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SetActive(ctx, bob.ID, 9999)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Delete(ctx, bob.ID, chat.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	chats, err := repo.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestChatDeleteActiveClearsPointer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ChatRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")

	chat, err := repo.Create(ctx, u.ID, "doomed")
	require.NoError(t, err)

	_, err = repo.AddMessage(ctx, chat.ID, model.RoleUser, "hello")
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, u.ID, chat.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := repo.GetActive(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	var count int64
	require.NoError(t, db.Model(&model.ChatMessage{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChatDeleteInactiveKeepsPointer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ChatRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")

	old, err := repo.Create(ctx, u.ID, "old")
	require.NoError(t, err)
	current, err := repo.Create(ctx, u.ID, "current")
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, u.ID, old.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	active, err := repo.GetActive(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, current.ID, active.ID)
}

func TestChatMessagesOrderAndBump(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ChatRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")

	older, err := repo.Create(ctx, u.ID, "older")
	require.NoError(t, err)
	newer, err := repo.Create(ctx, u.ID, "newer")
	require.NoError(t, err)

	for _, c := range []string{"one", "two", "three", "four"} {
		_, err := repo.AddMessage(ctx, older.ID, model.RoleUser, c)
		require.NoError(t, err)
	}

	msgs, err := repo.Messages(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "four", msgs[3].Content)

	recent, err := repo.RecentMessages(ctx, older.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Content)
	assert.Equal(t, "four", recent[1].Content)

	// Writing to the older thread moves it to the top
	chats, err := repo.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, older.ID, chats[0].ID)
	assert.Equal(t, newer.ID, chats[1].ID)
}
