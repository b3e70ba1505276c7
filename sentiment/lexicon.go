// Package sentiment scores the polarity of user text.
package sentiment

import (
	"strings"

	"github.com/poiesic/recall/core"
)

// Classifier assigns a polarity to text. Implementations must be pure.
type Classifier interface {
	Classify(text string) core.Sentiment
}

var (
	// PositiveWords is the default positive vocabulary.
	PositiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "happy", "love", "like"}
	// NegativeWords is the default negative vocabulary.
	NegativeWords = []string{"bad", "terrible", "awful", "hate", "dislike", "sad", "angry", "horrible"}
)

// Lexicon counts how many words of each vocabulary occur in the text,
// case-insensitively and as substrings. Each word counts at most once.
type Lexicon struct {
	positive []string
	negative []string
}

// NewLexicon creates a Lexicon over the given vocabularies. Words are
// lowercased.
func NewLexicon(positive, negative []string) *Lexicon {
	return &Lexicon{
		positive: lower(positive),
		negative: lower(negative),
	}
}

// DefaultLexicon returns a Lexicon over PositiveWords and NegativeWords.
func DefaultLexicon() *Lexicon {
	return NewLexicon(PositiveWords, NegativeWords)
}

// Classify returns positive when more positive words occur than negative,
// negative in the opposite case, and neutral on a tie.
func (l *Lexicon) Classify(text string) core.Sentiment {
	pos, neg := l.Score(text)
	switch {
	case pos > neg:
		return core.SentimentPositive
	case neg > pos:
		return core.SentimentNegative
	default:
		return core.SentimentNeutral
	}
}

// Score returns the positive and negative word counts for text.
func (l *Lexicon) Score(text string) (positive, negative int) {
	text = strings.ToLower(text)
	return count(text, l.positive), count(text, l.negative)
}

func count(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func lower(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
