package storage

import (
	"context"

	"github.com/poiesic/recall/core"
)

// VectorStore persists chunk text and embeddings under named indexes and
// answers similarity queries. Implementations must be thread-safe.
type VectorStore interface {
	// CreateIndex creates the index described by spec.
	// Creating an index that already exists is a no-op.
	// Returns ErrStoreUnavailable if the store cannot be reached.
	CreateIndex(ctx context.Context, spec core.IndexSpec) error

	// UpsertChunk writes a chunk, overwriting any chunk with the same id.
	// Returns ErrDimensionMismatch if len(embedding) differs from the index
	// dimension.
	UpsertChunk(ctx context.Context, index, chunkID, text string, embedding []float32) error

	// QuerySimilar returns up to k chunks ordered by ascending cosine distance
	// to query. An empty or absent index yields an empty result, not an error.
	// Returns ErrInvalidQuery if k < 1.
	QuerySimilar(ctx context.Context, index string, query []float32, k int) ([]core.ScoredChunk, error)

	// Close releases resources held by the store.
	Close() error
}

// ConversationStore persists per-session turn history.
// Implementations must be thread-safe.
type ConversationStore interface {
	// AppendTurn records turn as the newest entry of the session and renews
	// the session's time-to-live.
	AppendTurn(ctx context.Context, sessionID string, turn core.ConversationTurn) error

	// GetHistory returns at most limit turns, most recent first.
	// Unknown or expired sessions yield an empty slice.
	GetHistory(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error)

	// Close releases resources held by the store.
	Close() error
}
