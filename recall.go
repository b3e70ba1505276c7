// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package recall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/pipeline"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/storage/memory"
	"github.com/poiesic/recall/storage/redis"
)

var (
	// ErrBackendRequired is returned by Open when no storage backend is chosen.
	ErrBackendRequired = errors.New("storage backend required")

	// ErrBackendConflict is returned by Open when more than one backend is chosen.
	ErrBackendConflict = errors.New("only one storage backend may be chosen")
)

type backendKind int

const (
	backendNone backendKind = iota
	backendBadger
	backendRedis
	backendMemory
)

// Engine owns the stores and AI provider of one recall deployment and
// builds the components that use them.
type Engine struct {
	vectors       storage.VectorStore
	conversations storage.ConversationStore
	provider      ai.AIProvider
	index         core.IndexSpec
	release       func() error // closes the shared badger DB or redis client
	base          *slog.Logger // handed to the components the engine builds
	logger        *slog.Logger
}

// Option configures Open.
type Option func(*options) error

type options struct {
	backend    backendKind
	badgerPath string
	redisURL   string
	ttl        time.Duration
	index      core.IndexSpec
	aiConfig   *ai.Config
	provider   ai.AIProvider
	logger     *slog.Logger
}

func (o *options) setBackend(kind backendKind) error {
	if o.backend != backendNone && o.backend != kind {
		return ErrBackendConflict
	}
	o.backend = kind
	return nil
}

// WithBadger stores everything in a badger database at path.
func WithBadger(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("%w: badger path is empty", core.ErrConfiguration)
		}
		o.badgerPath = path
		return o.setBackend(backendBadger)
	}
}

// WithRedis stores everything in the Redis Stack server at url.
func WithRedis(url string) Option {
	return func(o *options) error {
		if url == "" {
			return fmt.Errorf("%w: redis url is empty", core.ErrConfiguration)
		}
		o.redisURL = url
		return o.setBackend(backendRedis)
	}
}

// WithMemory keeps everything in process memory.
func WithMemory() Option {
	return func(o *options) error {
		return o.setBackend(backendMemory)
	}
}

// WithTTL sets how long a session's history outlives its last turn.
// Default is one hour.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: ttl must be positive", core.ErrConfiguration)
		}
		o.ttl = ttl
		return nil
	}
}

// WithIndex sets the vector index used for ingestion and retrieval.
// Default is core.DefaultIndexName with ai.DefaultEmbeddingDimension.
func WithIndex(spec core.IndexSpec) Option {
	return func(o *options) error {
		if err := core.ValidateIndexSpec(spec); err != nil {
			return err
		}
		o.index = spec
		return nil
	}
}

// WithAIConfig builds an OpenAI-compatible provider from cfg.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) error {
		o.aiConfig = cfg
		return nil
	}
}

// WithProvider uses provider as is. It takes precedence over WithAIConfig.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) error {
		o.provider = provider
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// Open connects the chosen backend and AI provider.
func Open(ctx context.Context, opts ...Option) (*Engine, error) {
	o := &options{
		ttl: time.Hour,
		index: core.IndexSpec{
			Name:      core.DefaultIndexName,
			Dimension: ai.DefaultEmbeddingDimension,
			Metric:    core.MetricCosine,
		},
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &Engine{
		index:   o.index,
		release: func() error { return nil },
		base:    o.logger,
		logger:  o.logger.With("component", "engine"),
	}

	if err := e.openStores(ctx, o); err != nil {
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		var err error
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			e.closeStores()
			return nil, err
		}
	}
	e.provider = provider

	e.logger.Info("engine opened", "index", e.index.Name, "dimension", e.index.Dimension, "ttl", o.ttl)
	return e, nil
}

func (e *Engine) openStores(ctx context.Context, o *options) error {
	switch o.backend {
	case backendBadger:
		backend, err := badger.OpenBackend(o.badgerPath, false)
		if err != nil {
			return err
		}
		e.release = backend.Close

		if e.vectors, err = badger.NewVectorStore(backend); err != nil {
			backend.Close()
			return err
		}
		if e.conversations, err = badger.NewConversationStore(backend, o.ttl); err != nil {
			backend.Close()
			return err
		}
		e.logger = e.logger.With("backend", "badger")

	case backendRedis:
		client, err := redis.Connect(ctx, o.redisURL)
		if err != nil {
			return err
		}
		e.release = client.Close

		if e.vectors, err = redis.NewVectorStore(client); err != nil {
			client.Close()
			return err
		}
		if e.conversations, err = redis.NewConversationStore(client, o.ttl); err != nil {
			client.Close()
			return err
		}
		e.logger = e.logger.With("backend", "redis")

	case backendMemory:
		e.vectors = memory.NewVectorStore()
		e.conversations = memory.NewConversationStore(o.ttl)
		e.logger = e.logger.With("backend", "memory")

	default:
		return ErrBackendRequired
	}
	return nil
}

// closeStores closes both stores and then the shared connection.
func (e *Engine) closeStores() error {
	var errs []error
	if err := e.conversations.Close(); err != nil {
		e.logger.Error("error closing conversation store", "err", err)
		errs = append(errs, err)
	}
	if err := e.vectors.Close(); err != nil {
		e.logger.Error("error closing vector store", "err", err)
		errs = append(errs, err)
	}
	if err := e.release(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases the provider and every store.
func (e *Engine) Close() error {
	var errs []error
	if err := e.provider.Close(); err != nil {
		e.logger.Error("error closing AI provider", "err", err)
		errs = append(errs, err)
	}
	if err := e.closeStores(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// VectorStore returns the chunk store.
func (e *Engine) VectorStore() storage.VectorStore {
	return e.vectors
}

// ConversationStore returns the session history store.
func (e *Engine) ConversationStore() storage.ConversationStore {
	return e.conversations
}

// Provider returns the AI provider.
func (e *Engine) Provider() ai.AIProvider {
	return e.provider
}

// Index returns the configured vector index.
func (e *Engine) Index() core.IndexSpec {
	return e.index
}

// NewSearcher creates a searcher over the configured index.
func (e *Engine) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithIndex(e.index.Name), search.WithLogger(e.base)}, opts...)
	return search.NewSearcher(e.vectors, e.provider.Embedder(), opts...)
}

// NewIngester creates an ingester writing to the configured index.
// Call Release on the result when done.
func (e *Engine) NewIngester(splitter ingestion.Splitter, opts ...ingestion.Option) (*ingestion.Ingester, error) {
	opts = append([]ingestion.Option{ingestion.WithIndex(e.index), ingestion.WithLogger(e.base)}, opts...)
	return ingestion.NewIngester(e.vectors, e.provider.Embedder(), splitter, opts...)
}

// NewPipeline creates a conversation pipeline. In pipeline.ModeRetrieval
// it retrieves from the configured index unless opts supply a retriever.
func (e *Engine) NewPipeline(mode pipeline.Mode, opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	base := []pipeline.Option{pipeline.WithLogger(e.base)}
	if mode == pipeline.ModeRetrieval {
		searcher, err := e.NewSearcher()
		if err != nil {
			return nil, err
		}
		base = append(base, pipeline.WithRetriever(searcher))
	}
	return pipeline.New(mode, e.conversations, e.provider.Generator(), append(base, opts...)...)
}
