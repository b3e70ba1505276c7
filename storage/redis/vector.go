package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/redis/go-redis/v9"
)

// VectorStore implements storage.VectorStore on RediSearch.
// Index dimensions are cached after creation or the first FT.INFO.
type VectorStore struct {
	do     func(ctx context.Context, args ...any) *redis.Cmd
	mu     sync.RWMutex
	dims   map[string]int
	logger *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store over client.
func NewVectorStore(client redis.UniversalClient) (storage.VectorStore, error) {
	return newVectorStore(client)
}

func newVectorStore(client redis.UniversalClient) (*VectorStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	return &VectorStore{
		do:     client.Do,
		dims:   make(map[string]int),
		logger: slog.Default().With("component", "redis-vectors"),
	}, nil
}

// CreateIndex issues FT.CREATE. An existing index is left untouched.
func (s *VectorStore) CreateIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return err
	}

	err := s.do(ctx,
		"FT.CREATE", spec.Name,
		"ON", "HASH",
		"PREFIX", 1, spec.Name+":",
		"SCHEMA",
		"text", "TEXT",
		"embedding", "VECTOR", "FLAT", 6,
		"TYPE", "FLOAT32",
		"DIM", spec.Dimension,
		"DISTANCE_METRIC", string(core.MetricCosine),
	).Err()
	switch {
	case err == nil:
		s.remember(spec.Name, spec.Dimension)
		s.logger.Info("created index", "index", spec.Name, "dimension", spec.Dimension)
		return nil
	case isIndexExists(err):
		s.logger.Debug("index already exists", "index", spec.Name)
		return nil
	default:
		return fmt.Errorf("creating index %q: %w", spec.Name, translate(err))
	}
}

// UpsertChunk writes the chunk hash with HSET.
// Returns storage.ErrNotFound if the index does not exist.
func (s *VectorStore) UpsertChunk(ctx context.Context, index, chunkID, text string, embedding []float32) error {
	if err := core.ValidateChunk(core.DocumentChunk{Index: index, ChunkID: chunkID, Text: text, Embedding: embedding}); err != nil {
		return err
	}

	if err := s.checkUpsertDimension(ctx, index, embedding); err != nil {
		return err
	}

	err := s.do(ctx, "HSET", index+":"+chunkID, "text", text, "embedding", storage.EncodeVector(embedding)).Err()
	if err != nil {
		s.forget(index)
		return fmt.Errorf("writing chunk %q: %w", chunkID, translate(err))
	}
	return nil
}

// checkUpsertDimension validates embedding against the index dimension. A
// mismatch against a cached dimension rereads FT.INFO once, since the index
// may have been dropped and recreated with another DIM.
func (s *VectorStore) checkUpsertDimension(ctx context.Context, index string, embedding []float32) error {
	s.mu.RLock()
	dim, cached := s.dims[index]
	s.mu.RUnlock()
	if cached {
		if storage.CheckDimension(index, dim, embedding) == nil {
			return nil
		}
		s.forget(index)
	}

	dim, err := s.dimension(ctx, index)
	if err != nil {
		return err
	}
	if dim == 0 {
		return fmt.Errorf("%w: index %q", storage.ErrNotFound, index)
	}
	return storage.CheckDimension(index, dim, embedding)
}

// QuerySimilar runs a KNN FT.SEARCH sorted by ascending distance.
func (s *VectorStore) QuerySimilar(ctx context.Context, index string, query []float32, k int) ([]core.ScoredChunk, error) {
	if err := storage.CheckK(k); err != nil {
		return nil, err
	}

	dim, err := s.dimension(ctx, index)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []core.ScoredChunk{}, nil
	}
	if err := storage.CheckDimension(index, dim, query); err != nil {
		return nil, err
	}

	reply, err := s.do(ctx,
		"FT.SEARCH", index,
		fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", k),
		"PARAMS", 2, "vec", storage.EncodeVector(query),
		"SORTBY", "score", "ASC",
		"RETURN", 2, "text", "score",
		"DIALECT", 2,
		"LIMIT", 0, k,
	).Result()
	if err != nil {
		if isUnknownIndex(err) {
			s.forget(index)
			return []core.ScoredChunk{}, nil
		}
		return nil, fmt.Errorf("searching index %q: %w", index, translate(err))
	}

	results, err := parseSearchReply(reply, index)
	if err != nil {
		return nil, err
	}
	storage.SortByScore(results)
	return results, nil
}

// Close is a no-op; the client is closed by its owner.
func (s *VectorStore) Close() error {
	return nil
}

// dimension returns the cached dimension of index, reading it with FT.INFO
// on a miss. Zero means the index does not exist.
func (s *VectorStore) dimension(ctx context.Context, index string) (int, error) {
	s.mu.RLock()
	dim, ok := s.dims[index]
	s.mu.RUnlock()
	if ok {
		return dim, nil
	}

	reply, err := s.do(ctx, "FT.INFO", index).Result()
	if err != nil {
		if isUnknownIndex(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading index %q: %w", index, translate(err))
	}
	dim, ok = findDimension(reply)
	if !ok {
		return 0, fmt.Errorf("%w: index %q has no vector dimension", storage.ErrSerializationFailed, index)
	}
	s.remember(index, dim)
	return dim, nil
}

func (s *VectorStore) remember(index string, dim int) {
	s.mu.Lock()
	s.dims[index] = dim
	s.mu.Unlock()
}

func (s *VectorStore) forget(index string) {
	s.mu.Lock()
	delete(s.dims, index)
	s.mu.Unlock()
}

func isIndexExists(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "index already exists")
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index name") || strings.Contains(msg, "no such index")
}

// parseSearchReply unpacks a RESP2 FT.SEARCH reply:
// [total, key1, [field, value, ...], key2, [...], ...].
func parseSearchReply(reply any, index string) ([]core.ScoredChunk, error) {
	items, ok := reply.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: unexpected FT.SEARCH reply %T", storage.ErrSerializationFailed, reply)
	}

	results := make([]core.ScoredChunk, 0, (len(items)-1)/2)
	for i := 1; i+1 < len(items); i += 2 {
		key := toString(items[i])
		fields, ok := items[i+1].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: document %q has no field list", storage.ErrSerializationFailed, key)
		}

		chunk := core.ScoredChunk{ChunkID: strings.TrimPrefix(key, index+":")}
		for j := 0; j+1 < len(fields); j += 2 {
			switch toString(fields[j]) {
			case "text":
				chunk.Text = toString(fields[j+1])
			case "score":
				score, err := strconv.ParseFloat(toString(fields[j+1]), 32)
				if err != nil {
					return nil, fmt.Errorf("%w: score of %q: %w", storage.ErrSerializationFailed, key, err)
				}
				chunk.Score = float32(score)
			}
		}
		results = append(results, chunk)
	}
	return results, nil
}

// findDimension searches an FT.INFO reply for the first "dim" attribute.
// The attribute layout varies across RediSearch versions, so the whole
// reply tree is walked.
func findDimension(reply any) (int, bool) {
	items, ok := reply.([]any)
	if !ok {
		return 0, false
	}
	for i, item := range items {
		if nested, ok := item.([]any); ok {
			if dim, ok := findDimension(nested); ok {
				return dim, true
			}
			continue
		}
		if i+1 < len(items) && strings.EqualFold(toString(item), "dim") {
			if dim, err := strconv.Atoi(toString(items[i+1])); err == nil && dim > 0 {
				return dim, true
			}
		}
	}
	return 0, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
