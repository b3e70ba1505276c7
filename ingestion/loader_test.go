package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMarkdownToText_StripsMarkup(t *testing.T) {
	text, err := MarkdownToText([]byte("# Title\n\nSome **bold** and a [link](http://example.com).\n\n- one\n- two\n"))
	require.NoError(t, err)

	assert.Contains(t, text, "Title")
	assert.Contains(t, text, "Some bold and a link.")
	assert.Contains(t, text, "one")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "<p>")
	assert.NotContains(t, text, "http://example.com")
}

func TestLoadMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.md", "# Guide\n\nHello there.\n")

	doc, err := LoadMarkdown(path)
	require.NoError(t, err)

	assert.Equal(t, "guide", doc.ID)
	assert.Equal(t, path, doc.Path)
	assert.Contains(t, doc.Text, "Hello there.")
	assert.Equal(t, core.IDFromContent(doc.Text), doc.Fingerprint)
}

func TestLoadMarkdown_SameContentSameFingerprint(t *testing.T) {
	dir := t.TempDir()
	a, err := LoadMarkdown(writeFile(t, dir, "a.md", "same body"))
	require.NoError(t, err)
	b, err := LoadMarkdown(writeFile(t, dir, "b.MD", "same body"))
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.Equal(t, "b", b.ID)
}

func TestLoadMarkdown_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadMarkdown(writeFile(t, dir, "notes.txt", "text"))
	assert.ErrorIs(t, err, ErrNotMarkdown)

	_, err = LoadMarkdown(filepath.Join(dir, "missing.md"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
