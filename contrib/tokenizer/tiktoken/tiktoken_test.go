package tiktoken

import (
	"os"
	"testing"
)

func TestCountTokens(t *testing.T) {
	if os.Getenv("TIKTOKEN_TEST") == "" {
		t.Skip("TIKTOKEN_TEST not set; encodings are downloaded on first use")
	}

	tok, err := Default()
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}

	text := "Bonjour, comment vas-tu ?"
	ids := tok.Encode(text)
	if got := tok.CountTokens(text); got != len(ids) || got == 0 {
		t.Errorf("CountTokens = %d, len(Encode) = %d", got, len(ids))
	}
	if tok.DecodeIds(ids) != text {
		t.Error("round trip mismatch")
	}
	if tok.CountTokens("") != 0 {
		t.Error("empty text should have no tokens")
	}
}
