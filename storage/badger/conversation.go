package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultTTL is the session lifetime renewed by every append.
	DefaultTTL = time.Hour

	maxConflictRetries = 3
)

// ConversationStore implements storage.ConversationStore for BadgerDB.
// Each turn is its own entry; all entries of a session share one TTL that
// is renewed on append.
type ConversationStore struct {
	backend *Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

var _ storage.ConversationStore = (*ConversationStore)(nil)

// NewConversationStore creates a conversation store over backend.
// A non-positive ttl selects DefaultTTL.
func NewConversationStore(backend *Backend, ttl time.Duration) (storage.ConversationStore, error) {
	return newConversationStore(backend, ttl)
}

func newConversationStore(backend *Backend, ttl time.Duration) (*ConversationStore, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ConversationStore{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		logger:  backend.logger.With("store", "conversation"),
	}, nil
}

// AppendTurn stores turn as the newest entry and rewrites the session's
// existing entries with a renewed TTL.
func (s *ConversationStore) AppendTurn(ctx context.Context, sessionID string, turn core.ConversationTurn) error {
	if sessionID == "" {
		return storage.ErrSessionIDRequired
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := storage.MarshalTurn(turn)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = s.appendTurn(sessionID, value); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.logger.Debug("append conflicted, retrying", "session", sessionID, "attempt", attempt+1)
	}
	return err
}

func (s *ConversationStore) appendTurn(sessionID string, value []byte) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		type entry struct {
			key   []byte
			value []byte
		}
		var existing []entry
		err := scanPrefix(tx, makeSessionPrefix(sessionID), func(item *badger.Item) error {
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			existing = append(existing, entry{key: item.KeyCopy(nil), value: val})
			return nil
		})
		if err != nil {
			return err
		}

		inverted := invertTime(s.now())
		if len(existing) > 0 {
			// Keep strict newest-first order even if the clock stalls.
			if newest := turnSuffix(existing[0].key); inverted >= newest {
				inverted = newest - 1
			}
		}

		if err := tx.SetEntry(badger.NewEntry(makeTurnKey(sessionID, inverted), value).WithTTL(s.ttl)); err != nil {
			return err
		}
		for _, e := range existing {
			if err := tx.SetEntry(badger.NewEntry(e.key, e.value).WithTTL(s.ttl)); err != nil {
				return err
			}
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.logger.Debug("appended turn", "session", sessionID, "turns", len(existing)+1)
		return nil
	}, true)
}

// GetHistory returns at most limit turns, most recent first.
func (s *ConversationStore) GetHistory(ctx context.Context, sessionID string, limit int) ([]core.ConversationTurn, error) {
	turns := []core.ConversationTurn{}
	if sessionID == "" || limit < 1 {
		return turns, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makeSessionPrefix(sessionID), func(item *badger.Item) error {
			err := item.Value(func(val []byte) error {
				turn, err := storage.UnmarshalTurn(val)
				if err != nil {
					return err
				}
				turns = append(turns, turn)
				return nil
			})
			if err != nil {
				return fmt.Errorf("reading turn %q: %w", item.Key(), err)
			}
			if len(turns) >= limit {
				return errStopScan
			}
			return nil
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// Close is a no-op; the backend is closed by its owner.
func (s *ConversationStore) Close() error {
	return nil
}
