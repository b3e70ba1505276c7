package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB.
// Similarity is computed by scanning every chunk of the index.
type VectorStore struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store over backend.
func NewVectorStore(backend *Backend) (storage.VectorStore, error) {
	return newVectorStore(backend)
}

func newVectorStore(backend *Backend) (*VectorStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	return &VectorStore{
		backend: backend,
		logger:  backend.logger.With("store", "vector"),
	}, nil
}

// CreateIndex stores the index metadata unless the index already exists.
func (s *VectorStore) CreateIndex(ctx context.Context, spec core.IndexSpec) error {
	if err := core.ValidateIndexSpec(spec); err != nil {
		return err
	}
	if spec.Metric == "" {
		spec.Metric = core.MetricCosine
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		existing, err := readIndex(tx, spec.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			s.logger.Debug("index already exists", "index", spec.Name, "dimension", existing.Dimension)
			return nil
		}
		if err := tx.Set(makeIndexKey(spec.Name), storage.MarshalIndexSpec(spec)); err != nil {
			return err
		}
		s.logger.Info("created index", "index", spec.Name, "dimension", spec.Dimension)
		return tx.Commit()
	}, true)
}

// UpsertChunk writes a chunk into an existing index.
// Returns storage.ErrNotFound if the index does not exist.
func (s *VectorStore) UpsertChunk(ctx context.Context, index, chunkID, text string, embedding []float32) error {
	chunk := core.DocumentChunk{Index: index, ChunkID: chunkID, Text: text, Embedding: embedding}
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		spec, err := readIndex(tx, index)
		if err != nil {
			return err
		}
		if spec == nil {
			return fmt.Errorf("%w: index %q", storage.ErrNotFound, index)
		}
		if err := storage.CheckDimension(index, spec.Dimension, embedding); err != nil {
			return err
		}
		if err := tx.Set(makeChunkKey(index, chunkID), storage.MarshalChunk(&chunk)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// QuerySimilar scans the index and returns the k closest chunks.
func (s *VectorStore) QuerySimilar(ctx context.Context, index string, query []float32, k int) ([]core.ScoredChunk, error) {
	if err := storage.CheckK(k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	top := storage.NewTopK(k)
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		spec, err := readIndex(tx, index)
		if err != nil || spec == nil {
			return err
		}
		if err := storage.CheckDimension(index, spec.Dimension, query); err != nil {
			return err
		}
		return scanPrefix(tx, makeChunkPrefix(index), func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				chunk, err := storage.UnmarshalChunk(val)
				if err != nil {
					return fmt.Errorf("reading chunk %q: %w", item.Key(), err)
				}
				top.Offer(core.ScoredChunk{
					ChunkID: chunk.ChunkID,
					Text:    chunk.Text,
					Score:   storage.CosineDistance(query, chunk.Embedding),
				})
				return nil
			})
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return top.Results(), nil
}

// Close is a no-op; the backend is closed by its owner.
func (s *VectorStore) Close() error {
	return nil
}

// readIndex returns the index metadata, or nil if the index does not exist.
func readIndex(tx *badger.Txn, index string) (*core.IndexSpec, error) {
	item, err := tx.Get(makeIndexKey(index))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var spec core.IndexSpec
	err = item.Value(func(val []byte) error {
		spec, err = storage.UnmarshalIndexSpec(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &spec, nil
}
