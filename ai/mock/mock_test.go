package mock

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVector_DeterministicUnitLength(t *testing.T) {
	a := GenerateVector("hello", 16)
	b := GenerateVector("hello", 16)
	c := GenerateVector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_Dimension(t *testing.T) {
	e := NewMockEmbedderWithDimension(8)
	vec, err := e.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 1, e.CallCount())

	assert.Equal(t, DefaultDimension, NewMockEmbedderWithDimension(0).Dimension())
}

func TestMockGenerator_RecordsPrompts(t *testing.T) {
	g := NewMockGenerator()
	assert.Equal(t, "", g.LastPrompt())

	reply, err := g.Complete(context.Background(), "first")
	require.NoError(t, err)
	assert.Equal(t, DefaultReply, reply)

	g.CompleteFunc = func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("boom")
	}
	_, err = g.Complete(context.Background(), "second")
	assert.Error(t, err)
	assert.Equal(t, "second", g.LastPrompt())
	assert.Equal(t, 2, g.CallCount())

	g.Reset()
	assert.Equal(t, 0, g.CallCount())
}
