package badger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "db")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := OpenBackend(file, false)
	assert.Error(t, err)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestClosedBackend_StoresReportUnavailable(t *testing.T) {
	vectors, turns, backend, err := NewMemoryStores(0)
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	ctx := context.Background()
	_, err = turns.GetHistory(ctx, "s", 5)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)

	_, err = vectors.QuerySimilar(ctx, "idx", []float32{1}, 1)
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestKeys_NoPrefixCollision(t *testing.T) {
	a := makeSessionPrefix("a")
	ab := makeTurnKey("a:b", 1)
	assert.NotEqual(t, string(a), string(ab[:len(a)]))

	c := makeChunkPrefix("idx")
	cd := makeChunkKey("idx:2", "0")
	assert.NotEqual(t, string(c), string(cd[:len(c)]))
}

func TestNewStores_RequireBackend(t *testing.T) {
	_, err := NewVectorStore(nil)
	assert.ErrorIs(t, err, ErrBackendRequired)

	_, err = NewConversationStore(nil, 0)
	assert.ErrorIs(t, err, ErrBackendRequired)
}
