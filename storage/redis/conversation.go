package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is the session lifetime renewed by every append.
	DefaultTTL = time.Hour

	conversationPrefix = "conversation:"
)

// ConversationStore implements storage.ConversationStore on Redis lists.
type ConversationStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates a conversation store. A non-positive ttl
// selects DefaultTTL.
func NewConversationStore(client redis.UniversalClient, ttl time.Duration) (storage.ConversationStore, error) {
	return newConversationStore(client, ttl)
}

func newConversationStore(client redis.UniversalClient, ttl time.Duration) (*ConversationStore, error) {
	if client == nil {
		return nil, ErrClientRequired
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{
		client: client,
		ttl:    ttl,
		logger: slog.Default().With("component", "redis-conversations"),
	}, nil
}

func sessionKey(sessionID string) string {
	return conversationPrefix + sessionID
}

// AppendTurn pushes turn onto the head of the session list and renews the
// key's expiry in one MULTI/EXEC.
func (s *ConversationStore) AppendTurn(ctx context.Context, sessionID string, turn core.ConversationTurn) error {
	if sessionID == "" {
		return storage.ErrSessionIDRequired
	}
	value, err := storage.MarshalTurn(turn)
	if err != nil {
		return err
	}

	key := sessionKey(sessionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, value)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return translate(err)
	}
	s.logger.Debug("appended turn", "session", sessionID)
	return nil
}

// GetHistory returns at most limit turns, most recent first. Entries that do
// not decode are skipped.
func (s *ConversationStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error) {
	turns := []core.ConversationTurn{}
	if sessionID == "" || limit < 1 {
		return turns, nil
	}

	values, err := s.client.LRange(ctx, sessionKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, translate(err)
	}
	for _, v := range values {
		turn, err := storage.UnmarshalTurn([]byte(v))
		if err != nil {
			s.logger.Warn("skipping malformed turn", "session", sessionID, "err", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Close is a no-op; the client is closed by its owner.
func (s *ConversationStore) Close() error {
	return nil
}
