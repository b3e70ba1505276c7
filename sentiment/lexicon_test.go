package sentiment

import (
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
)

func TestLexicon_Classify(t *testing.T) {
	l := DefaultLexicon()

	tests := []struct {
		name string
		text string
		want core.Sentiment
	}{
		{"positive", "This is GREAT, I love it", core.SentimentPositive},
		{"negative", "terrible and awful", core.SentimentNegative},
		{"neutral no words", "what is a vector index?", core.SentimentNeutral},
		{"tie", "good but bad", core.SentimentNeutral},
		{"empty", "", core.SentimentNeutral},
		{"substring match", "goodness", core.SentimentPositive},
		{"repeats count once", "good good good bad sad", core.SentimentNegative},
		// "dislike" also contains "like".
		{"dislike", "I dislike this", core.SentimentNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Classify(tt.text))
		})
	}
}

func TestLexicon_Score(t *testing.T) {
	pos, neg := DefaultLexicon().Score("Happy and wonderful, not angry")
	assert.Equal(t, 2, pos)
	assert.Equal(t, 1, neg)
}

func TestLexicon_Deterministic(t *testing.T) {
	l := DefaultLexicon()
	for i := 0; i < 10; i++ {
		assert.Equal(t, core.SentimentPositive, l.Classify("amazing"))
	}
}

func TestNewLexicon_CustomWords(t *testing.T) {
	var c Classifier = NewLexicon([]string{"Fast"}, []string{"slow"})
	assert.Equal(t, core.SentimentPositive, c.Classify("so fast"))
	assert.Equal(t, core.SentimentNegative, c.Classify("SLOW"))
}
