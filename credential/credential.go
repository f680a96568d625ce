// Package credential stores per-user backend API keys and the remembered
// model preference.
package credential

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
)

// Well-known credential names.
const (
	OpenAIKey     = "OPENAI_API_KEY"
	GeminiKey     = "GEMINI_API_KEY"
	AnthropicKey  = "ANTHROPIC_API_KEY"
	SelectedModel = "SELECTED_MODEL"
)

// Names lists every name a Store accepts.
var Names = []string{OpenAIKey, GeminiKey, AnthropicKey, SelectedModel}

// KeyName returns the credential name holding the API key for kind.
func KeyName(kind provider.Kind) string {
	switch kind {
	case provider.KindOpenAI:
		return OpenAIKey
	case provider.KindClaude:
		return AnthropicKey
	default:
		return GeminiKey
	}
}

// ValidName reports whether name is a known credential name.
func ValidName(name string) bool {
	for _, n := range Names {
		if n == name {
			return true
		}
	}
	return false
}

// Store is a per-user key-value store. Get returns "" without error when
// nothing is stored.
type Store interface {
	Get(ctx context.Context, userID, name string) (string, error)
	Set(ctx context.Context, userID, name, value string) error
}

// InMemoryStore keeps credentials in process memory.
type InMemoryStore struct {
	values map[string]map[string]string
	mu     sync.RWMutex
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]map[string]string)}
}

// Get implements Store.
func (s *InMemoryStore) Get(ctx context.Context, userID, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[userID][name], nil
}

// Set implements Store. An empty value removes the entry.
func (s *InMemoryStore) Set(ctx context.Context, userID, name, value string) error {
	if !ValidName(name) {
		return fmt.Errorf("credential %q: %w", name, errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if value == "" {
		delete(s.values[userID], name)
		return nil
	}
	if s.values[userID] == nil {
		s.values[userID] = make(map[string]string)
	}
	s.values[userID][name] = value
	return nil
}

// Resolver looks up credentials for a user, falling back to process-wide
// defaults when the user has stored none.
type Resolver struct {
	store    Store
	defaults map[string]string
}

// NewResolver creates a resolver. store may be nil, in which case only the
// defaults are consulted.
func NewResolver(store Store, defaults map[string]string) *Resolver {
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Resolver{store: store, defaults: defaults}
}

// DefaultsFromEnv reads process-wide defaults for every credential name.
func DefaultsFromEnv() map[string]string {
	defaults := make(map[string]string, len(Names))
	for _, name := range Names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			defaults[name] = v
		}
	}
	return defaults
}

func (r *Resolver) lookup(ctx context.Context, userID, name string) (string, error) {
	if r.store != nil && userID != "" {
		v, err := r.store.Get(ctx, userID, name)
		if err != nil {
			return "", fmt.Errorf("failed to read credential %s: %w", name, err)
		}
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return r.defaults[name], nil
}

// Resolve returns the API key for kind, or "" when none is configured.
func (r *Resolver) Resolve(ctx context.Context, userID string, kind provider.Kind) (string, error) {
	return r.lookup(ctx, userID, KeyName(kind))
}

// Model returns the remembered model preference, or "".
func (r *Resolver) Model(ctx context.Context, userID string) (string, error) {
	return r.lookup(ctx, userID, SelectedModel)
}

// Save stores value under name for userID.
func (r *Resolver) Save(ctx context.Context, userID, name, value string) error {
	if r.store == nil {
		return fmt.Errorf("no credential store configured: %w", errors.ErrInternal)
	}
	if userID == "" {
		return errors.ErrUnauthorized
	}
	if !ValidName(name) {
		return fmt.Errorf("credential %q: %w", name, errors.ErrInvalidInput)
	}
	return r.store.Set(ctx, userID, name, strings.TrimSpace(value))
}
