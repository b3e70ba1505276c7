package chunking

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/poiesic/recall/core"
)

// DefaultEncoding is the BPE encoding used by OpenAI embedding models.
const DefaultEncoding = "cl100k_base"

func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TiktokenCodec adapts a tiktoken encoding to TokenCodec. The BPE ranks
// are embedded in the binary, so no download happens at startup.
type TiktokenCodec struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCodec loads the named encoding, DefaultEncoding when empty.
func NewTiktokenCodec(encoding string) (*TiktokenCodec, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: loading encoding %q: %w", core.ErrConfiguration, encoding, err)
	}
	return &TiktokenCodec{enc: enc}, nil
}

func (t *TiktokenCodec) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

func (t *TiktokenCodec) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}
