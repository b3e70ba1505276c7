package chunking

import (
	"fmt"

	"github.com/poiesic/recall/core"
)

const (
	// DefaultMaxTokens is the window size used by New when none is given.
	DefaultMaxTokens = 3000
	// DefaultOverlap is the number of tokens shared by adjacent windows.
	DefaultOverlap = 100
)

// TokenCodec converts between text and token ids.
// Decode(Encode(s)) must reproduce s.
type TokenCodec interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

// Chunk splits text into windows of at most maxTokens tokens, consecutive
// windows sharing overlap tokens. Empty text yields an empty slice.
func Chunk(text string, maxTokens, overlap int, codec TokenCodec) ([]string, error) {
	if err := validate(maxTokens, overlap, codec); err != nil {
		return nil, err
	}
	if text == "" {
		return []string{}, nil
	}

	tokens := codec.Encode(text)
	stride := maxTokens - overlap
	chunks := make([]string, 0, len(tokens)/stride+1)
	for start := 0; start < len(tokens); start += stride {
		end := min(start+maxTokens, len(tokens))
		chunks = append(chunks, codec.Decode(tokens[start:end]))
	}
	return chunks, nil
}

func validate(maxTokens, overlap int, codec TokenCodec) error {
	if codec == nil {
		return fmt.Errorf("%w: token codec is required", core.ErrConfiguration)
	}
	if maxTokens < 1 {
		return fmt.Errorf("%w: maxTokens must be at least 1, got %d", core.ErrConfiguration, maxTokens)
	}
	if overlap < 0 || overlap >= maxTokens {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", core.ErrConfiguration, maxTokens, overlap)
	}
	return nil
}

// Chunker binds window parameters to a codec.
type Chunker struct {
	codec     TokenCodec
	maxTokens int
	overlap   int
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithMaxTokens sets the window size.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) error {
		c.maxTokens = n
		return nil
	}
}

// WithOverlap sets the number of tokens shared by adjacent windows.
func WithOverlap(n int) Option {
	return func(c *Chunker) error {
		c.overlap = n
		return nil
	}
}

// New creates a Chunker using DefaultMaxTokens and DefaultOverlap unless
// overridden.
func New(codec TokenCodec, opts ...Option) (*Chunker, error) {
	c := &Chunker{
		codec:     codec,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlap,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if err := validate(c.maxTokens, c.overlap, c.codec); err != nil {
		return nil, err
	}
	return c, nil
}

// Split chunks text with the bound parameters.
func (c *Chunker) Split(text string) ([]string, error) {
	return Chunk(text, c.maxTokens, c.overlap, c.codec)
}

// MaxTokens returns the configured window size.
func (c *Chunker) MaxTokens() int {
	return c.maxTokens
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}
