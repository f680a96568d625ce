package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
)

const backendName = "openai"

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// WithBaseURL set BaseURL.
func (cfg *Config) WithBaseURL(url string) *Config {
	cfg.BaseURL = url
	return cfg
}

// WithAPIKey set api key.
func (cfg *Config) WithAPIKey(apiKey string) *Config {
	cfg.APIKey = apiKey
	return cfg
}

// WithModel set model.
func (cfg *Config) WithModel(model string) *Config {
	cfg.Model = model
	return cfg
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Provider for OpenAI chat completions
type Provider struct {
	config *Config
	client openai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new OpenAI provider using the official SDK. It fails with
// errors.ErrCredentialMissing when no API key is configured.
func New(config *Config, opts ...option.RequestOption) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", backendName, errors.ErrCredentialMissing)
	}
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}
	options = append(options, opts...)

	return &Provider{
		config: config,
		client: openai.NewClient(options...),
	}, nil
}

func (p *Provider) params(prompt, model string) openai.ChatCompletionNewParams {
	if model == "" {
		model = p.config.Model
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(provider.SystemInstruction),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.config.MaxTokens)
	}
	return params
}

// Complete implements provider.Provider with a single chat completion call
func (p *Provider) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	completion, err := p.client.Chat.Completions.New(ctx, p.params(prompt, model))
	if err != nil {
		return "", errors.NewProviderError(backendName, err)
	}
	if len(completion.Choices) == 0 {
		return "", errors.NewProviderError(backendName, fmt.Errorf("no choices returned"))
	}
	return completion.Choices[0].Message.Content, nil
}

// Generate implements provider.Provider with a streaming chat completion
func (p *Provider) Generate(ctx context.Context, prompt, model string, onFragment provider.FragmentFunc) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(prompt, model))
	defer stream.Close()

	acc := provider.NewAccumulator(onFragment)
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		acc.Append(chunk.Choices[0].Delta.Content)
	}

	if err := stream.Err(); err != nil {
		return "", errors.NewProviderError(backendName, err)
	}
	return acc.Text(), nil
}
