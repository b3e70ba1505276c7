package main

import (
	"bytes"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
)

func TestPrintMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := newPrintMonitor(&buf)

	near := core.ScoredChunk{ChunkID: "doc:0", Text: "first passage", Score: 0.1}
	far := core.ScoredChunk{ChunkID: "doc:1", Text: "second passage", Score: 0.9}

	m.Start("passage")
	m.AfterEmbedding(4)
	m.AfterQuery([]core.ScoredChunk{near, far})
	m.Hit(near, true)
	m.Filtered(far)
	m.Finish([]core.ScoredChunk{near})

	out := buf.String()
	assert.Contains(t, out, "1. [doc:0] distance=0.1000 verbatim\nfirst passage\n")
	assert.NotContains(t, out, "doc:1")
	assert.NotContains(t, out, "No passages found.")
	assert.Contains(t, out, "1 passage(s) beyond max distance omitted.")
}

func TestPrintMonitorEmpty(t *testing.T) {
	var buf bytes.Buffer
	m := newPrintMonitor(&buf)
	m.Finish(nil)
	assert.Equal(t, "No passages found.\n", buf.String())
}
