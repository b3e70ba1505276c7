package chunking

import (
	"strings"
	"testing"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mixedText = "Redis stores vectors 🚀 in hashes. 向量搜索使用余弦距离。" +
	" Emoji families 👨‍👩‍👧 and flags 🇯🇵 span several tokens; naïve café text too."

func newTestTiktoken(t *testing.T) *TiktokenCodec {
	t.Helper()
	codec, err := NewTiktokenCodec("")
	require.NoError(t, err)
	return codec
}

func TestTiktokenCodec_RoundTrip(t *testing.T) {
	codec := newTestTiktoken(t)

	for _, text := range []string{"", "plain ascii", "向量搜索", "🚀👨‍👩‍👧", mixedText} {
		tokens := codec.Encode(text)
		assert.Equal(t, text, codec.Decode(tokens))
	}
	assert.NotEmpty(t, codec.Encode(mixedText))
}

func TestTiktokenCodec_UnknownEncoding(t *testing.T) {
	_, err := NewTiktokenCodec("no_such_encoding")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestTiktokenChunk_OverlapReconstruction(t *testing.T) {
	codec := newTestTiktoken(t)
	tokens := codec.Encode(mixedText)

	for _, tc := range []struct{ maxTokens, overlap int }{
		{1, 0},
		{3, 1},
		{5, 2},
		{8, 0},
		{16, 4},
	} {
		chunks, err := Chunk(mixedText, tc.maxTokens, tc.overlap, codec)
		require.NoError(t, err)

		stride := tc.maxTokens - tc.overlap
		require.Len(t, chunks, (len(tokens)+stride-1)/stride, "max=%d overlap=%d", tc.maxTokens, tc.overlap)

		var rebuilt strings.Builder
		for i, chunk := range chunks {
			start := i * stride
			end := min(start+tc.maxTokens, len(tokens))
			assert.Equal(t, codec.Decode(tokens[start:end]), chunk)

			if i == 0 {
				rebuilt.WriteString(chunk)
				continue
			}
			shared := codec.Decode(tokens[start:min(start+tc.overlap, end)])
			rest, ok := strings.CutPrefix(chunk, shared)
			require.True(t, ok, "chunk %d does not start with the overlap", i)
			rebuilt.WriteString(rest)
		}
		assert.Equal(t, mixedText, rebuilt.String(), "max=%d overlap=%d", tc.maxTokens, tc.overlap)
	}
}

func TestTiktokenChunk_StridesConcatenate(t *testing.T) {
	codec := newTestTiktoken(t)
	tokens := codec.Encode(mixedText)

	const stride = 4

	var joined strings.Builder
	for start := 0; start < len(tokens); start += stride {
		joined.WriteString(codec.Decode(tokens[start:min(start+stride, len(tokens))]))
	}
	assert.Equal(t, mixedText, joined.String())
}
