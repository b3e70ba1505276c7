package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Splitter splits document text into chunks. *chunking.Chunker implements it.
type Splitter interface {
	Split(text string) ([]string, error)
}

// Ingester loads, chunks, embeds and stores documents.
type Ingester struct {
	store       storage.VectorStore
	embedder    ai.Embedder
	splitter    Splitter
	index       core.IndexSpec
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures an Ingester.
type Option func(*Ingester) error

// WithPoolSize sets how many documents are processed concurrently.
// Default is 1.
func WithPoolSize(size int) Option {
	return func(i *Ingester) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if i.pool != nil {
			i.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		i.pool = pool
		return nil
	}
}

// WithIndex sets the target index.
// Default is core.DefaultIndexName with ai.DefaultEmbeddingDimension.
func WithIndex(spec core.IndexSpec) Option {
	return func(i *Ingester) error {
		if err := core.ValidateIndexSpec(spec); err != nil {
			return err
		}
		i.index = spec
		return nil
	}
}

// WithRetry sets how embedding calls are retried.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(i *Ingester) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		i.maxAttempts = maxAttempts
		i.baseDelay = baseDelay
		return nil
	}
}

// WithProgress reports per-document progress to w.
func WithProgress(w io.Writer) Option {
	return func(i *Ingester) error {
		i.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Ingester) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// NewIngester creates a new ingester. Call Release when done.
func NewIngester(store storage.VectorStore, embedder ai.Embedder, splitter Splitter, opts ...Option) (*Ingester, error) {
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if splitter == nil {
		return nil, ErrSplitterRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	i := &Ingester{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		index: core.IndexSpec{
			Name:      core.DefaultIndexName,
			Dimension: ai.DefaultEmbeddingDimension,
			Metric:    core.MetricCosine,
		},
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(i); optErr != nil {
			i.Release()
			return nil, optErr
		}
	}
	i.logger = i.logger.With("component", "ingester", "index", i.index.Name)

	return i, nil
}

// Release releases the worker pool.
// The ingester should not be used after calling Release.
func (i *Ingester) Release() {
	if i.pool != nil {
		i.pool.Release()
	}
}

// IngestDir ingests every *.md file directly inside dir, in name order.
func (i *Ingester) IngestDir(ctx context.Context, dir string) (*Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(paths)

	return i.IngestFiles(ctx, paths)
}

// IngestFiles creates the index if needed and ingests paths. The returned
// error is non-nil only when the batch could not run at all or ctx ended;
// per-document failures are reported in the Summary.
func (i *Ingester) IngestFiles(ctx context.Context, paths []string) (*Summary, error) {
	if err := i.store.CreateIndex(ctx, i.index); err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	summary := newSummary()
	var tracker *ProgressTracker
	if i.progress != nil {
		tracker = NewProgressTracker(i.progress, len(paths))
		tracker.Start()
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[core.ID]string)
	)

	// Claims a fingerprint; returns the earlier path on a duplicate.
	claim := func(doc *Document) (string, bool) {
		mu.Lock()
		defer mu.Unlock()
		if first, ok := seen[doc.Fingerprint]; ok {
			return first, false
		}
		seen[doc.Fingerprint] = doc.Path
		return "", true
	}

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := i.pool.Submit(func() {
			defer wg.Done()
			ok := i.ingestOne(ctx, path, summary, claim)
			if tracker != nil {
				tracker.Done(!ok)
			}
		})
		if err != nil {
			wg.Done()
			summary.fail(path, err)
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	i.logger.Info("ingestion finished",
		"processed", summary.Processed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"chunks", summary.Chunks,
	)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (i *Ingester) ingestOne(ctx context.Context, path string, summary *Summary, claim func(*Document) (string, bool)) bool {
	i.logger.Info("processing document", "path", path)

	doc, err := LoadMarkdown(path)
	if err != nil {
		i.logger.Error("failed to ingest document", "path", path, "err", err)
		summary.fail(path, err)
		return false
	}

	if first, ok := claim(doc); !ok {
		i.logger.Info("skipping duplicate document", "path", path, "duplicateOf", first)
		summary.skip()
		return true
	}

	chunks, err := i.IngestDocument(ctx, doc)
	if err != nil {
		i.logger.Error("failed to ingest document", "path", path, "err", err)
		summary.fail(path, err)
		return false
	}

	i.logger.Info("ingested document", "doc", doc.ID, "chunks", chunks, "fingerprint", uint64(doc.Fingerprint))
	summary.success(chunks)
	return true
}

// IngestDocument chunks, embeds and upserts one document, returning the
// number of chunks written. Chunk ids are {doc.ID}:{i}.
func (i *Ingester) IngestDocument(ctx context.Context, doc *Document) (int, error) {
	chunks, err := i.splitter.Split(doc.Text)
	if err != nil {
		return 0, err
	}

	for n, chunk := range chunks {
		var embedding []float32
		err := retry(ctx, i.logger, func() error {
			var embedErr error
			embedding, embedErr = i.embedder.EmbedText(ctx, chunk)
			if errors.Is(embedErr, context.Canceled) || errors.Is(embedErr, context.DeadlineExceeded) {
				return Permanent(embedErr)
			}
			return embedErr
		}, i.maxAttempts, i.baseDelay)
		if err != nil {
			return n, fmt.Errorf("%w: chunk %d: %w", core.ErrEmbedding, n, err)
		}

		chunkID := fmt.Sprintf("%s:%d", doc.ID, n)
		if err := i.store.UpsertChunk(ctx, i.index.Name, chunkID, chunk, embedding); err != nil {
			return n, fmt.Errorf("storing chunk %s: %w", chunkID, err)
		}
	}
	return len(chunks), nil
}
