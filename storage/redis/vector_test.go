package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis answers commands from a table keyed by command name and records
// every call.
type fakeRedis struct {
	replies map[string]func(args []any) (any, error)
	calls   [][]any
}

func (f *fakeRedis) do(ctx context.Context, args ...any) *redis.Cmd {
	f.calls = append(f.calls, args)
	name := fmt.Sprint(args[0])
	if reply, ok := f.replies[name]; ok {
		val, err := reply(args)
		return redis.NewCmdResult(val, err)
	}
	return redis.NewCmdResult(nil, errors.New("ERR unknown command '"+name+"'"))
}

func (f *fakeRedis) last(name string) []any {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if fmt.Sprint(f.calls[i][0]) == name {
			return f.calls[i]
		}
	}
	return nil
}

func newFakeStore(f *fakeRedis) *VectorStore {
	// Never dialed: every command goes through f.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	store, _ := newVectorStore(client)
	store.do = f.do
	return store
}

func TestVectorStore_CreateIndexCommand(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
	}}
	store := newFakeStore(f)

	require.NoError(t, store.CreateIndex(context.Background(), core.IndexSpec{Name: "idx", Dimension: 1536}))

	want := []any{
		"FT.CREATE", "idx", "ON", "HASH", "PREFIX", 1, "idx:",
		"SCHEMA", "text", "TEXT", "embedding", "VECTOR", "FLAT", 6,
		"TYPE", "FLOAT32", "DIM", 1536, "DISTANCE_METRIC", "COSINE",
	}
	assert.Equal(t, want, f.last("FT.CREATE"))
}

func TestVectorStore_CreateIndexExisting(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return nil, errors.New("Index already exists") },
	}}
	store := newFakeStore(f)
	assert.NoError(t, store.CreateIndex(context.Background(), core.IndexSpec{Name: "idx", Dimension: 4}))
}

// infoReply is an FT.INFO reply for an index with a dim-wide vector field.
func infoReply(dim int64) any {
	return []any{
		"index_name", "idx",
		"attributes", []any{
			[]any{"identifier", "text", "attribute", "text", "type", "TEXT"},
			[]any{"identifier", "embedding", "attribute", "embedding", "type", "VECTOR", "algorithm", "FLAT", "data_type", "FLOAT32", "dim", dim, "distance_metric", "COSINE"},
		},
		"num_docs", "0",
	}
}

func countCalls(f *fakeRedis, name string) int {
	n := 0
	for _, c := range f.calls {
		if c[0] == name {
			n++
		}
	}
	return n
}

func TestVectorStore_UpsertChunk(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
		"FT.INFO":   func([]any) (any, error) { return infoReply(2), nil },
		"HSET":      func([]any) (any, error) { return int64(2), nil },
	}}
	store := newFakeStore(f)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, core.IndexSpec{Name: "idx", Dimension: 2}))

	require.NoError(t, store.UpsertChunk(ctx, "idx", "doc:0", "hello", []float32{1, 0}))
	assert.Equal(t, []any{"HSET", "idx:doc:0", "text", "hello", "embedding", storage.EncodeVector([]float32{1, 0})}, f.last("HSET"))

	err := store.UpsertChunk(ctx, "idx", "doc:1", "hello", []float32{1, 0, 0})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestVectorStore_DimensionFromInfo(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.INFO": func([]any) (any, error) {
			return []any{
				"index_name", "idx",
				"attributes", []any{
					[]any{"identifier", "text", "attribute", "text", "type", "TEXT"},
					[]any{"identifier", "embedding", "attribute", "embedding", "type", "VECTOR", "algorithm", "FLAT", "data_type", "FLOAT32", "dim", int64(3), "distance_metric", "COSINE"},
				},
				"num_docs", "0",
			}, nil
		},
		"HSET": func([]any) (any, error) { return int64(2), nil },
	}}
	store := newFakeStore(f)
	ctx := context.Background()

	err := store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	require.NoError(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2, 3}))

	infoCalls := 0
	for _, c := range f.calls {
		if c[0] == "FT.INFO" {
			infoCalls++
		}
	}
	assert.Equal(t, 1, infoCalls)
}

func TestVectorStore_UpsertAfterIndexRecreated(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
		"FT.INFO":   func([]any) (any, error) { return infoReply(3), nil },
		"HSET":      func([]any) (any, error) { return int64(2), nil },
	}}
	store := newFakeStore(f)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, core.IndexSpec{Name: "idx", Dimension: 2}))

	// Another process recreated idx with DIM 3.
	require.NoError(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2, 3}))
	require.NoError(t, store.UpsertChunk(ctx, "idx", "d", "t", []float32{4, 5, 6}))
	assert.Equal(t, 1, countCalls(f, "FT.INFO"))

	err := store.UpsertChunk(ctx, "idx", "e", "t", []float32{1, 2})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Equal(t, 2, countCalls(f, "FT.INFO"))
}

func TestVectorStore_UpsertWriteFailureForgetsDimension(t *testing.T) {
	hsetErr := errors.New("READONLY You can't write against a read only replica")
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.INFO": func([]any) (any, error) { return infoReply(2), nil },
		"HSET":    func([]any) (any, error) { return nil, hsetErr },
	}}
	store := newFakeStore(f)
	ctx := context.Background()

	require.Error(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2}))
	require.Error(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2}))
	assert.Equal(t, 2, countCalls(f, "FT.INFO"))

	f.replies["HSET"] = func([]any) (any, error) { return int64(2), nil }
	require.NoError(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2}))
	require.NoError(t, store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 2}))
	assert.Equal(t, 3, countCalls(f, "FT.INFO"))
}

func TestVectorStore_UnknownIndex(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.INFO": func([]any) (any, error) { return nil, errors.New("Unknown Index name") },
	}}
	store := newFakeStore(f)
	ctx := context.Background()

	results, err := store.QuerySimilar(ctx, "idx", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	err = store.UpsertChunk(ctx, "idx", "c", "t", []float32{1, 0})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVectorStore_QuerySimilar(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
		"FT.SEARCH": func([]any) (any, error) {
			return []any{
				int64(2),
				"idx:doc:1", []any{"score", "0.25", "text", "second"},
				"idx:doc:0", []any{"text", "first", "score", "0.0500000119209"},
			}, nil
		},
	}}
	store := newFakeStore(f)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, core.IndexSpec{Name: "idx", Dimension: 2}))

	results, err := store.QuerySimilar(ctx, "idx", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].Text)
	assert.Equal(t, "doc:0", results[0].ChunkID)
	assert.InDelta(t, 0.05, results[0].Score, 1e-6)
	assert.Equal(t, "second", results[1].Text)

	want := []any{
		"FT.SEARCH", "idx", "*=>[KNN 2 @embedding $vec AS score]",
		"PARAMS", 2, "vec", storage.EncodeVector([]float32{1, 0}),
		"SORTBY", "score", "ASC",
		"RETURN", 2, "text", "score",
		"DIALECT", 2,
		"LIMIT", 0, 2,
	}
	assert.Equal(t, want, f.last("FT.SEARCH"))
}

func TestVectorStore_QueryValidation(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
	}}
	store := newFakeStore(f)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, core.IndexSpec{Name: "idx", Dimension: 2}))

	_, err := store.QuerySimilar(ctx, "idx", []float32{1, 0}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)

	_, err = store.QuerySimilar(ctx, "idx", []float32{1}, 1)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestVectorStore_IndexDroppedBetweenQueries(t *testing.T) {
	f := &fakeRedis{replies: map[string]func([]any) (any, error){
		"FT.CREATE": func([]any) (any, error) { return "OK", nil },
		"FT.SEARCH": func([]any) (any, error) { return nil, errors.New("idx: no such index") },
	}}
	store := newFakeStore(f)
	ctx := context.Background()
	require.NoError(t, store.CreateIndex(ctx, core.IndexSpec{Name: "idx", Dimension: 2}))

	results, err := store.QuerySimilar(ctx, "idx", []float32{1, 0}, 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVectorStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	defer client.Close()
	store, err := NewVectorStore(client)
	require.NoError(t, err)
	mr.Close()

	err = store.CreateIndex(context.Background(), core.IndexSpec{Name: "idx", Dimension: 2})
	assert.ErrorIs(t, err, storage.ErrStoreUnavailable)
}

func TestParseSearchReply_Malformed(t *testing.T) {
	_, err := parseSearchReply("nope", "idx")
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)

	_, err = parseSearchReply([]any{int64(1), "idx:a", "not-a-list"}, "idx")
	assert.ErrorIs(t, err, storage.ErrSerializationFailed)

	results, err := parseSearchReply([]any{int64(0)}, "idx")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindDimension(t *testing.T) {
	dim, ok := findDimension([]any{"attributes", []any{[]any{"DIM", "768"}}})
	assert.True(t, ok)
	assert.Equal(t, 768, dim)

	_, ok = findDimension([]any{"attributes", []any{}})
	assert.False(t, ok)
}
