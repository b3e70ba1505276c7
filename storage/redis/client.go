// Package redis implements the storage interfaces on Redis.
//
// Conversations are Redis lists of JSON turns under conversation:{session},
// newest first, expiring an hour after the last append. Chunks are hashes
// {index}:{chunkID} with fields text and embedding (little-endian float32)
// indexed by a RediSearch FLAT vector index using cosine distance.
//
// The RediSearch module is required for the vector store only.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/recall/storage"
	"github.com/redis/go-redis/v9"
)

// DefaultConnectTimeout bounds the initial PING.
const DefaultConnectTimeout = 5 * time.Second

// Connect parses a redis:// URL, opens a client and verifies it with PING.
// The client speaks RESP2 so FT.* replies arrive as flat arrays.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.Protocol = 2

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", storage.ErrStoreUnavailable, opts.Addr, err)
	}
	return client, nil
}

// ErrClientRequired indicates a store was constructed without a client.
var ErrClientRequired = errors.New("redis client is required")

// translate marks transport failures as storage.ErrStoreUnavailable.
// Replies from the server pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var reply redis.Error
	if errors.As(err, &reply) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", storage.ErrStoreUnavailable, err)
}
