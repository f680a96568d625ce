package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
)

const backendName = "claude"

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       "claude-sonnet-4-5",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Provider for Claude
type Provider struct {
	config *Config
	client anthropic.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Claude provider using official SDK
func New(config *Config, opts ...option.RequestOption) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", backendName, errors.ErrCredentialMissing)
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithAuthToken(""),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}, nil
}

func (p *Provider) params(prompt, model string) anthropic.MessageNewParams {
	if model == "" {
		model = p.config.Model
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: p.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: provider.SystemInstruction},
		},
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	return params
}

// Complete implements provider.Provider
func (p *Provider) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	apiMessage, err := p.client.Messages.New(ctx, p.params(prompt, model))
	if err != nil {
		return "", errors.NewProviderError(backendName, err)
	}

	var sb strings.Builder
	for _, content := range apiMessage.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	return sb.String(), nil
}

// Generate implements provider.Provider, streaming text deltas
func (p *Provider) Generate(ctx context.Context, prompt, model string, onFragment provider.FragmentFunc) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	stream := p.client.Messages.NewStreaming(ctx, p.params(prompt, model))
	defer stream.Close()

	acc := provider.NewAccumulator(onFragment)
	for stream.Next() {
		event := stream.Current()
		if event.Type != "content_block_delta" {
			continue
		}
		delta := event.AsContentBlockDelta()
		if delta.Delta.Type == "text_delta" {
			acc.Append(delta.Delta.Text)
		}
	}

	if err := stream.Err(); err != nil {
		return "", errors.NewProviderError(backendName, err)
	}
	return acc.Text(), nil
}
