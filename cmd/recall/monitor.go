package main

import (
	"fmt"
	"io"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/search"
)

// printMonitor writes search results as the searcher reports them.
type printMonitor struct {
	w        io.Writer
	shown    int
	filtered int
}

var _ search.SearchMonitor = (*printMonitor)(nil)

func newPrintMonitor(w io.Writer) *printMonitor {
	return &printMonitor{w: w}
}

func (p *printMonitor) Start(_ string)                  {}
func (p *printMonitor) AfterEmbedding(_ int)            {}
func (p *printMonitor) AfterQuery(_ []core.ScoredChunk) {}

func (p *printMonitor) Filtered(_ core.ScoredChunk) {
	p.filtered++
}

func (p *printMonitor) Hit(hit core.ScoredChunk, verbatim bool) {
	p.shown++
	marker := ""
	if verbatim {
		marker = " verbatim"
	}
	fmt.Fprintf(p.w, "%d. [%s] distance=%.4f%s\n%s\n\n", p.shown, hit.ChunkID, hit.Score, marker, hit.Text)
}

func (p *printMonitor) Finish(results []core.ScoredChunk) {
	if len(results) == 0 {
		fmt.Fprintln(p.w, "No passages found.")
	}
	if p.filtered > 0 {
		fmt.Fprintf(p.w, "%d passage(s) beyond max distance omitted.\n", p.filtered)
	}
}
