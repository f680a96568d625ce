package gemini

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
	"google.golang.org/genai"
)

const backendName = "gemini"

// DefaultModel is used when neither the call nor the config names a model.
const DefaultModel = "gemini-2.5-flash-lite"

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       DefaultModel,
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}

// Provider implements provider.Provider for Google Gemini
type Provider struct {
	config *Config
	client *genai.Client
}

var _ provider.Provider = (*Provider)(nil)

// New creates a new Gemini provider backed by the genai SDK
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", backendName, errors.ErrCredentialMissing)
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, errors.NewProviderError(backendName, fmt.Errorf("creating genai client: %w", err))
	}

	return &Provider{config: config, client: client}, nil
}

func (p *Provider) generateConfig() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(provider.SystemInstruction, genai.RoleUser),
	}
	if p.config.Temperature > 0 {
		cfg.Temperature = genai.Ptr(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		cfg.MaxOutputTokens = p.config.MaxTokens
	}
	return cfg
}

func (p *Provider) model(model string) string {
	if model == "" {
		return p.config.Model
	}
	return model
}

// Complete implements provider.Provider
func (p *Provider) Complete(ctx context.Context, prompt, model string) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model(model), genai.Text(prompt), p.generateConfig())
	if err != nil {
		return "", errors.NewProviderError(backendName, fmt.Errorf("generate content: %w", err))
	}
	return resp.Text(), nil
}

// Generate implements provider.Provider, streaming content chunks
func (p *Provider) Generate(ctx context.Context, prompt, model string, onFragment provider.FragmentFunc) (string, error) {
	if err := provider.CheckPrompt(prompt); err != nil {
		return "", err
	}

	acc := provider.NewAccumulator(onFragment)
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model(model), genai.Text(prompt), p.generateConfig()) {
		if err != nil {
			return "", errors.NewProviderError(backendName, fmt.Errorf("stream content: %w", err))
		}
		acc.Append(resp.Text())
	}
	return acc.Text(), nil
}
