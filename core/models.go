package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Sentiment is the polarity assigned to a user message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ConversationTurn is one user message and the assistant's reply to it.
// Turns are immutable once written.
type ConversationTurn struct {
	UserMessage       string    `json:"message"`
	AssistantResponse string    `json:"response"`
	Sentiment         Sentiment `json:"sentiment,omitempty"` // empty when the pipeline does not classify
	CreatedAt         time.Time `json:"timestamp"`
}

// DistanceMetric names the distance function of a vector index.
type DistanceMetric string

// MetricCosine is the only supported metric.
const MetricCosine DistanceMetric = "COSINE"

// DefaultIndexName is the vector index used when none is configured.
const DefaultIndexName = "rag_docs"

// IndexSpec describes a named vector index.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    DistanceMetric
}

// DocumentChunk is a slice of a source document together with its embedding.
// Chunks are addressed by (Index, ChunkID) and are never updated in place.
type DocumentChunk struct {
	Index     string
	ChunkID   string
	Text      string
	Embedding []float32
}

// ScoredChunk is a similarity query hit. Score is the cosine distance to the
// query vector, so lower is more similar.
type ScoredChunk struct {
	ChunkID string
	Text    string
	Score   float32
}
