package storage

import (
	"fmt"
	"math"
	"sort"

	"github.com/poiesic/recall/core"
)

// CosineDistance returns 1 - cos(a, b). Vectors of different length or with
// zero magnitude have distance 1.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

// CheckK validates a k-nearest-neighbor result size.
func CheckK(k int) error {
	if k < 1 {
		return fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidQuery, k)
	}
	return nil
}

// CheckDimension validates an embedding against an index dimension.
func CheckDimension(index string, want int, embedding []float32) error {
	if len(embedding) != want {
		return fmt.Errorf("%w: index %q expects %d, got %d", ErrDimensionMismatch, index, want, len(embedding))
	}
	return nil
}

// TopK keeps the k closest chunks seen so far, ordered by ascending score.
// Ties are broken by chunk id so results are stable.
type TopK struct {
	k     int
	items []core.ScoredChunk
}

// NewTopK creates a collector for k results.
func NewTopK(k int) *TopK {
	return &TopK{k: k, items: make([]core.ScoredChunk, 0, k+1)}
}

// Offer considers a candidate.
func (t *TopK) Offer(c core.ScoredChunk) {
	i := sort.Search(len(t.items), func(i int) bool {
		return less(c, t.items[i])
	})
	if i >= t.k {
		return
	}
	t.items = append(t.items, core.ScoredChunk{})
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = c
	if len(t.items) > t.k {
		t.items = t.items[:t.k]
	}
}

// Results returns the collected chunks, closest first.
func (t *TopK) Results() []core.ScoredChunk {
	return t.items
}

func less(a, b core.ScoredChunk) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.ChunkID < b.ChunkID
}

// SortByScore orders chunks by ascending score, then chunk id.
func SortByScore(chunks []core.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		return less(chunks[i], chunks[j])
	})
}
