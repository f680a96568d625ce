package provider

import (
	"context"
	"strings"
)

// SystemInstruction is sent to every backend alongside the prompt.
const SystemInstruction = "You are an expert language-teaching assistant."

// FragmentFunc receives the cumulative text generated so far.
type FragmentFunc func(textSoFar string)

// Provider is a text-generation backend.
type Provider interface {
	// Generate streams a completion for prompt, calling onFragment with the
	// cumulative text after every non-empty increment, and returns the final text.
	Generate(ctx context.Context, prompt, model string, onFragment FragmentFunc) (string, error)

	// Complete returns a completion for prompt in a single call.
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// Kind identifies a backend family.
type Kind string

const (
	KindGemini Kind = "gemini"
	KindOpenAI Kind = "openai"
	KindClaude Kind = "claude"
)

// String returns the display name of the backend.
func (k Kind) String() string {
	switch k {
	case KindOpenAI:
		return "OpenAI"
	case KindClaude:
		return "Claude"
	default:
		return "Gemini"
	}
}

// Model identifier prefixes that select a non-default backend.
const (
	OpenAIPrefix = "gpt"
	ClaudePrefix = "claude"
)

// Route selects the backend for a model identifier. Anything without a
// known prefix goes to Gemini.
func Route(model string) Kind {
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, OpenAIPrefix):
		return KindOpenAI
	case strings.HasPrefix(m, ClaudePrefix):
		return KindClaude
	default:
		return KindGemini
	}
}

// Options tunes generation for every backend.
type Options struct {
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultOptions returns the generation settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxTokens:   2048,
		Temperature: 0.7,
	}
}
