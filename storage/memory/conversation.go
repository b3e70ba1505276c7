// Package memory provides process-local implementations of the storage
// interfaces. Nothing survives a restart.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultTTL is the session lifetime renewed by every append.
	DefaultTTL = time.Hour

	defaultCleanupInterval = 10 * time.Minute
)

// ConversationStore implements storage.ConversationStore on go-cache.
// Each session is one cache item holding its turns newest first; every
// append re-sets the item, renewing its expiration.
type ConversationStore struct {
	cache  *cache.Cache
	mu     sync.Mutex // serializes read-modify-write of one session
	logger *slog.Logger
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates a conversation store whose sessions expire
// ttl after their last append. A non-positive ttl selects DefaultTTL.
func NewConversationStore(ttl time.Duration) storage.ConversationStore {
	return newConversationStore(ttl, defaultCleanupInterval)
}

func newConversationStore(ttl, cleanup time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{
		cache:  cache.New(ttl, cleanup),
		logger: slog.Default().With("component", "memory-conversations"),
	}
}

// AppendTurn prepends turn to the session and renews its expiration.
func (s *ConversationStore) AppendTurn(ctx context.Context, sessionID string, turn core.ConversationTurn) error {
	if sessionID == "" {
		return storage.ErrSessionIDRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []core.ConversationTurn
	if x, found := s.cache.Get(sessionID); found {
		existing = x.([]core.ConversationTurn)
	}

	// Stored slices are never mutated so readers need no lock.
	turns := make([]core.ConversationTurn, 0, len(existing)+1)
	turns = append(turns, turn)
	turns = append(turns, existing...)
	s.cache.Set(sessionID, turns, cache.DefaultExpiration)

	s.logger.Debug("appended turn", "session", sessionID, "turns", len(turns))
	return nil
}

// GetHistory returns at most limit turns, most recent first.
func (s *ConversationStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	x, found := s.cache.Get(sessionID)
	if !found || limit < 1 {
		return []core.ConversationTurn{}, nil
	}
	turns := x.([]core.ConversationTurn)
	return append([]core.ConversationTurn(nil), turns[:min(limit, len(turns))]...), nil
}

// Close drops every session.
func (s *ConversationStore) Close() error {
	s.cache.Flush()
	return nil
}
