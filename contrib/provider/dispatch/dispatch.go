// Package dispatch builds the concrete provider for a backend kind.
package dispatch

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/contrib/provider/claude"
	"github.com/sweetpotato0/tandem/contrib/provider/gemini"
	"github.com/sweetpotato0/tandem/contrib/provider/openai"
	"github.com/sweetpotato0/tandem/errors"
)

// Factory constructs a provider. Callers substitute it in tests.
type Factory func(ctx context.Context, kind provider.Kind, apiKey string, opts provider.Options) (provider.Provider, error)

var _ Factory = New

// New returns the provider for kind authenticated with apiKey. An empty key
// fails with errors.ErrCredentialMissing before any client is created.
func New(ctx context.Context, kind provider.Kind, apiKey string, opts provider.Options) (provider.Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %w", kind, errors.ErrCredentialMissing)
	}

	switch kind {
	case provider.KindOpenAI:
		p, err := openai.New(&openai.Config{
			APIKey:      apiKey,
			BaseURL:     opts.BaseURL,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case provider.KindClaude:
		p, err := claude.New(&claude.Config{
			APIKey:      apiKey,
			BaseURL:     opts.BaseURL,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case provider.KindGemini:
		p, err := gemini.New(ctx, &gemini.Config{
			APIKey:      apiKey,
			BaseURL:     opts.BaseURL,
			MaxTokens:   int32(opts.MaxTokens),
			Temperature: float32(opts.Temperature),
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown provider kind %q: %w", string(kind), errors.ErrInvalidInput)
	}
}
