package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

type index struct {
	spec   core.IndexSpec
	chunks map[string]core.DocumentChunk
}

// VectorStore implements storage.VectorStore with maps guarded by a
// read-write lock. Queries scan the whole index.
type VectorStore struct {
	mu      sync.RWMutex
	indexes map[string]*index
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates an empty vector store.
func NewVectorStore() storage.VectorStore {
	return newVectorStore()
}

func newVectorStore() *VectorStore {
	return &VectorStore{
		indexes: make(map[string]*index),
		logger:  slog.Default().With("component", "memory-vectors"),
	}
}

// CreateIndex registers the index unless it already exists.
func (s *VectorStore) CreateIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return err
	}
	if spec.Metric == "" {
		spec.Metric = core.MetricCosine
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[spec.Name]; ok {
		return nil
	}
	s.indexes[spec.Name] = &index{spec: spec, chunks: make(map[string]core.DocumentChunk)}
	s.logger.Debug("created index", "index", spec.Name, "dimension", spec.Dimension)
	return nil
}

// UpsertChunk writes a chunk into an existing index.
// Returns storage.ErrNotFound if the index does not exist.
func (s *VectorStore) UpsertChunk(ctx context.Context, indexName, chunkID, text string, embedding []float32) error {
	chunk := core.DocumentChunk{
		Index:     indexName,
		ChunkID:   chunkID,
		Text:      text,
		Embedding: slices.Clone(embedding),
	}
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexes[indexName]
	if !ok {
		return fmt.Errorf("%w: index %q", storage.ErrNotFound, indexName)
	}
	if err := storage.CheckDimension(indexName, idx.spec.Dimension, embedding); err != nil {
		return err
	}
	idx.chunks[chunkID] = chunk
	return nil
}

// QuerySimilar returns the k chunks closest to query.
func (s *VectorStore) QuerySimilar(ctx context.Context, indexName string, query []float32, k int) ([]core.ScoredChunk, error) {
	if err := storage.CheckK(k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[indexName]
	if !ok {
		return []core.ScoredChunk{}, nil
	}
	if err := storage.CheckDimension(indexName, idx.spec.Dimension, query); err != nil {
		return nil, err
	}

	top := storage.NewTopK(k)
	for id, chunk := range idx.chunks {
		top.Offer(core.ScoredChunk{
			ChunkID: id,
			Text:    chunk.Text,
			Score:   storage.CosineDistance(query, chunk.Embedding),
		})
	}
	return top.Results(), nil
}

// Close drops every index.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes = make(map[string]*index)
	return nil
}
