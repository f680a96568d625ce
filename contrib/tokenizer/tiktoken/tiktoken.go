package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when the model is unknown to tiktoken.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts prompt tokens with a BPE encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer resolves name as a model first, then as an encoding.
func NewTiktokenTokenizer(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Default returns a tokenizer for DefaultEncoding.
func Default() (*Tokenizer, error) {
	return NewTiktokenTokenizer(DefaultEncoding)
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

func (t *Tokenizer) DecodeIds(ids []int) string {
	return t.enc.Decode(ids)
}
