package search

import (
	"github.com/poiesic/recall/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterEmbedding(dimension int)
	AfterQuery(hits []core.ScoredChunk)
	Filtered(hit core.ScoredChunk)
	Hit(hit core.ScoredChunk, verbatim bool)
	Finish(results []core.ScoredChunk)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterEmbedding(_ int)            {}
func (n *noopMonitor) AfterQuery(_ []core.ScoredChunk) {}
func (n *noopMonitor) Filtered(_ core.ScoredChunk)     {}
func (n *noopMonitor) Hit(_ core.ScoredChunk, _ bool)  {}
func (n *noopMonitor) Finish(_ []core.ScoredChunk)     {}
