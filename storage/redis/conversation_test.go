package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConversationStore(t *testing.T) (*ConversationStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store, err := newConversationStore(client, 0)
	require.NoError(t, err)
	return store, mr
}

func turn(i int) core.ConversationTurn {
	return core.ConversationTurn{
		UserMessage:       fmt.Sprintf("question %d", i),
		AssistantResponse: fmt.Sprintf("answer %d", i),
		CreatedAt:         time.Date(2025, 1, 1, 0, 0, i, 0, time.UTC),
	}
}

func TestConnect_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), "redis://"+addr)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestConversationStore_AppendThenGet(t *testing.T) {
	store, _ := setupConversationStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", turn(1)))

	history, err := store.GetHistory(ctx, "s1", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, turn(1), history[0])
}

func TestConversationStore_Layout(t *testing.T) {
	store, mr := setupConversationStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", turn(1)))
	require.NoError(t, store.AppendTurn(ctx, "s1", turn(2)))

	values, err := mr.List("conversation:s1")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Contains(t, values[0], `"message":"question 2"`)
	assert.Equal(t, time.Hour, mr.TTL("conversation:s1"))
}

func TestConversationStore_NewestFirstAndLimit(t *testing.T) {
	store, _ := setupConversationStore(t)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		require.NoError(t, store.AppendTurn(ctx, "s1", turn(i)))
	}

	history, err := store.GetHistory(ctx, "s1", 5)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, "question 7", history[0].UserMessage)
	assert.Equal(t, "question 3", history[4].UserMessage)
}

func TestConversationStore_Expiry(t *testing.T) {
	store, mr := setupConversationStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", turn(1)))
	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.AppendTurn(ctx, "s1", turn(2)))

	// Renewed by the second append.
	mr.FastForward(45 * time.Minute)
	history, err := store.GetHistory(ctx, "s1", 5)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	mr.FastForward(16 * time.Minute)
	history, err = store.GetHistory(ctx, "s1", 5)
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestConversationStore_SkipsMalformed(t *testing.T) {
	store, mr := setupConversationStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendTurn(ctx, "s1", turn(1)))
	_, err := mr.Lpush("conversation:s1", "{garbage")
	require.NoError(t, err)

	history, err := store.GetHistory(ctx, "s1", 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "question 1", history[0].UserMessage)
}

func TestConversationStore_Unavailable(t *testing.T) {
	store, mr := setupConversationStore(t)
	mr.Close()

	err := store.AppendTurn(context.Background(), "s1", turn(1))
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)

	_, err = store.GetHistory(context.Background(), "s1", 5)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestNewConversationStore_RequiresClient(t *testing.T) {
	_, err := NewConversationStore(nil, 0)
	assert.ErrorIs(t, err, ErrClientRequired)
}
