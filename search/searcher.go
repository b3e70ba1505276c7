package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Searcher retrieves the chunks of one index closest to a text query.
type Searcher struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	index       string
	maxDistance float32 // 0 disables the cut-off
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithIndex sets the index to search.
// Default is core.DefaultIndexName.
func WithIndex(name string) Option {
	return func(s *Searcher) error {
		if name == "" {
			return storage.ErrIndexNameRequired
		}
		s.index = name
		return nil
	}
}

// WithMaxDistance drops hits whose cosine distance exceeds d.
// Zero (the default) keeps every hit.
func WithMaxDistance(d float32) Option {
	return func(s *Searcher) error {
		if d < 0 {
			return ErrInvalidMaxDistance
		}
		s.maxDistance = d
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.VectorStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		index:    core.DefaultIndexName,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher", "index", s.index)

	return s, nil
}

// Index returns the name of the searched index.
func (s *Searcher) Index() string {
	return s.index
}

// FindSimilar returns up to k chunks closest to query, nearest first.
func (s *Searcher) FindSimilar(ctx context.Context, query string, k int) ([]core.ScoredChunk, error) {
	return s.FindSimilarWithMonitor(ctx, query, k, nil)
}

// FindSimilarWithMonitor is FindSimilar with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, query string, k int, monitor SearchMonitor) ([]core.ScoredChunk, error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrEmbedding, err)
	}
	monitor.AfterEmbedding(len(embedding))

	hits, err := s.store.QuerySimilar(ctx, s.index, embedding, k)
	if err != nil {
		s.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterQuery(hits)

	results := make([]core.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		if s.maxDistance > 0 && hit.Score > s.maxDistance {
			monitor.Filtered(hit)
			continue
		}
		monitor.Hit(hit, verbatim(hit.Text, query))
		results = append(results, hit)
	}
	monitor.Finish(results)

	s.logger.Debug("search complete", "hits", len(hits), "kept", len(results))
	return results, nil
}
