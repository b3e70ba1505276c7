package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbatim(t *testing.T) {
	tests := []struct {
		name    string
		passage string
		query   string
		want    bool
	}{
		{"all words present", "Redis supports vector search.", "vector search", true},
		{"stop words ignored", "vector search", "the vector of search", true},
		{"case and punctuation", "VECTOR, search!", "vector search?", true},
		{"dotted command names", "Use FT.SEARCH with KNN.", "ft.search", true},
		{"hyphen splits words", "key-value store", "value store", true},
		{"missing word", "vector index", "vector search", false},
		{"only stop words", "anything", "the a an", false},
		{"empty query", "anything", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, verbatim(tt.passage, tt.query))
		})
	}
}

func TestContentWords(t *testing.T) {
	words := contentWords("The cache, the CACHE and a store_name.")
	assert.Equal(t, map[string]struct{}{"cache": {}, "store_name": {}}, words)
}
