// Package scenario runs the single-shot helper calls around a chat:
// scenario brainstorming and quick translation.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/prompt"
)

// Brainstorm kinds accepted by Service.Brainstorm.
const (
	KindRandom  = "random"
	KindImprove = "improve"
	KindTitle   = "title"
)

// Providers resolves the model and provider for a user. *tutor.Tutor
// satisfies it.
type Providers interface {
	ResolveModel(ctx context.Context, userID, requested string) (string, error)
	Provider(ctx context.Context, userID, model string) (provider.Provider, error)
}

// Options identify the caller and the languages of the chat being prepared.
type Options struct {
	UserID         string
	Model          string
	SourceLanguage string
	TargetLanguage string
}

type data struct {
	SourceLanguage string
	TargetLanguage string
	Topic          string
	From           string
	To             string
	Text           string
}

// Service issues non-streamed completions.
type Service struct {
	providers Providers
	templates *prompt.Manager
	logger    *slog.Logger
}

// NewService creates a scenario service. A nil logger uses the process logger.
func NewService(p Providers, logger *slog.Logger) *Service {
	m := prompt.NewManager()
	m.MustRegisterString(TemplateRandom, randomTemplate)
	m.MustRegisterString(TemplateImprove, improveTemplate)
	m.MustRegisterString(TemplateTitle, titleTemplate)
	m.MustRegisterString(TemplateTranslate, translateTemplate)

	if logger == nil {
		logger = logging.WithComponent("scenario")
	}
	return &Service{providers: p, templates: m, logger: logger}
}

// Templates exposes the registered prompts.
func (s *Service) Templates() *prompt.Manager {
	return s.templates
}

// Random invents a new scenario.
func (s *Service) Random(ctx context.Context, opts Options) (string, error) {
	return s.complete(ctx, TemplateRandom, s.data(opts, ""), opts)
}

// Improve rewrites a rough topic into a full scenario.
func (s *Service) Improve(ctx context.Context, topic string, opts Options) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("topic is required: %w", errors.ErrInvalidInput)
	}
	return s.complete(ctx, TemplateImprove, s.data(opts, topic), opts)
}

// Title names a scenario in a few words.
func (s *Service) Title(ctx context.Context, topic string, opts Options) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("topic is required: %w", errors.ErrInvalidInput)
	}
	title, err := s.complete(ctx, TemplateTitle, s.data(opts, topic), opts)
	if err != nil {
		return "", err
	}
	return strings.Trim(title, `"«» `), nil
}

// Brainstorm dispatches on kind.
func (s *Service) Brainstorm(ctx context.Context, kind, topic string, opts Options) (string, error) {
	switch kind {
	case KindRandom:
		return s.Random(ctx, opts)
	case KindImprove:
		return s.Improve(ctx, topic, opts)
	case KindTitle:
		return s.Title(ctx, topic, opts)
	default:
		return "", fmt.Errorf("brainstorm %q: %w", kind, errors.ErrInvalidInput)
	}
}

// Translate translates text from one language into another. Empty languages
// default to the chat's target and source languages.
func (s *Service) Translate(ctx context.Context, text, from, to string, opts Options) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required: %w", errors.ErrInvalidInput)
	}
	d := s.data(opts, "")
	d.Text = text
	d.From = from
	if d.From == "" {
		d.From = d.TargetLanguage
	}
	d.To = to
	if d.To == "" {
		d.To = d.SourceLanguage
	}
	return s.complete(ctx, TemplateTranslate, d, opts)
}

func (s *Service) data(opts Options, topic string) data {
	d := data{
		SourceLanguage: opts.SourceLanguage,
		TargetLanguage: opts.TargetLanguage,
		Topic:          topic,
	}
	if d.SourceLanguage == "" {
		d.SourceLanguage = chat.DefaultSourceLang
	}
	if d.TargetLanguage == "" {
		d.TargetLanguage = chat.DefaultTargetLang
	}
	return d
}

func (s *Service) complete(ctx context.Context, name string, d data, opts Options) (string, error) {
	text, err := s.templates.Render(name, d)
	if err != nil {
		return "", err
	}

	model, err := s.providers.ResolveModel(ctx, opts.UserID, opts.Model)
	if err != nil {
		return "", err
	}
	p, err := s.providers.Provider(ctx, opts.UserID, model)
	if err != nil {
		return "", err
	}

	out, err := p.Complete(ctx, text, model)
	if err != nil {
		s.logger.ErrorContext(ctx, "completion failed", "template", name, "model", model, "error", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}
