package ingestion

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/poiesic/recall/core"
	"github.com/russross/blackfriday/v2"
)

// Document is a loaded source file.
type Document struct {
	ID          string  // file name without extension
	Path        string
	Text        string
	Fingerprint core.ID // content hash of Text
}

// LoadMarkdown reads a Markdown file and returns its plain text.
func LoadMarkdown(path string) (*Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return nil, fmt.Errorf("%w: %s", ErrNotMarkdown, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, err := MarkdownToText(data)
	if err != nil {
		return nil, fmt.Errorf("extracting text from %s: %w", path, err)
	}

	base := filepath.Base(path)
	return &Document{
		ID:          strings.TrimSuffix(base, filepath.Ext(base)),
		Path:        path,
		Text:        text,
		Fingerprint: core.IDFromContent(text),
	}, nil
}

// MarkdownToText renders Markdown to HTML and returns the HTML's text nodes.
func MarkdownToText(markdown []byte) (string, error) {
	html := blackfriday.Run(markdown)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}
