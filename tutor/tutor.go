// Package tutor turns a learner request into one or more streamed provider
// calls and returns the text the learner watched arrive.
package tutor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/contrib/provider/dispatch"
	"github.com/sweetpotato0/tandem/credential"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/middleware"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/pkg/telemetry"
	"github.com/sweetpotato0/tandem/prompt"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultModel is used when neither the request nor the user names a model.
const DefaultModel = "gemini-2.5-flash-lite"

// MissingCredentialWarning is the text shown instead of a reply when the
// backend for the chosen model has no API key.
func MissingCredentialWarning(kind provider.Kind) string {
	return fmt.Sprintf("⚠️ **Missing API key** for %s. Add it in Settings to continue.", kind)
}

// IsCredentialWarning reports whether text is the warning Generate returns
// in place of a reply. It is shown to the learner but never stored.
func IsCredentialWarning(text string) bool {
	for _, kind := range []provider.Kind{provider.KindGemini, provider.KindOpenAI, provider.KindClaude} {
		if text == MissingCredentialWarning(kind) {
			return true
		}
	}
	return false
}

// Tutor orchestrates generations.
type Tutor struct {
	engine       *prompt.Engine
	factory      dispatch.Factory
	credentials  *credential.Resolver
	defaultModel string
	options      provider.Options
	middlewares  *middleware.MiddlewareChain
	tokens       TokenCounter
	tracer       trace.Tracer
	logger       *slog.Logger
}

// Option is a function that configures a Tutor
type Option func(*Tutor)

// WithFactory sets how providers are constructed
func WithFactory(f dispatch.Factory) Option {
	return func(t *Tutor) {
		t.factory = f
	}
}

// WithCredentials sets the credential resolver
func WithCredentials(r *credential.Resolver) Option {
	return func(t *Tutor) {
		t.credentials = r
	}
}

// WithDefaultModel sets the fallback model
func WithDefaultModel(model string) Option {
	return func(t *Tutor) {
		if model != "" {
			t.defaultModel = model
		}
	}
}

// WithProviderOptions sets generation options passed to every provider
func WithProviderOptions(opts provider.Options) Option {
	return func(t *Tutor) {
		t.options = opts
	}
}

// WithMiddleware adds a middleware to the chain
func WithMiddleware(m middleware.Middleware) Option {
	return func(t *Tutor) {
		t.middlewares.Add(m)
	}
}

// WithMiddlewares replaces the middleware chain
func WithMiddlewares(middlewares ...middleware.Middleware) Option {
	return func(t *Tutor) {
		t.middlewares = middleware.NewChain(middlewares...)
	}
}

// WithTokenCounter records prompt token counts on stage spans
func WithTokenCounter(c TokenCounter) Option {
	return func(t *Tutor) {
		t.tokens = c
	}
}

// WithTracer overrides the tracer
func WithTracer(tr trace.Tracer) Option {
	return func(t *Tutor) {
		t.tracer = tr
	}
}

// WithLogger overrides the logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Tutor) {
		t.logger = l
	}
}

// New creates a tutor. Without options it builds real providers and reads
// default credentials from the environment.
func New(opts ...Option) *Tutor {
	t := &Tutor{
		engine:       prompt.NewEngine(),
		factory:      dispatch.New,
		defaultModel: DefaultModel,
		options:      provider.DefaultOptions(),
		middlewares:  middleware.NewChain(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.credentials == nil {
		t.credentials = credential.NewResolver(nil, credential.DefaultsFromEnv())
	}
	if t.tracer == nil {
		t.tracer = telemetry.Tracer()
	}
	if t.logger == nil {
		t.logger = logging.WithComponent("tutor")
	}
	return t
}

// Engine returns the prompt engine.
func (t *Tutor) Engine() *prompt.Engine {
	return t.engine
}

// Middlewares returns the middleware chain.
func (t *Tutor) Middlewares() *middleware.MiddlewareChain {
	return t.middlewares
}

// ResolveModel picks the request model, then the user's remembered
// preference, then the default.
func (t *Tutor) ResolveModel(ctx context.Context, userID, requested string) (string, error) {
	if m := strings.TrimSpace(requested); m != "" {
		return m, nil
	}
	preferred, err := t.credentials.Model(ctx, userID)
	if err != nil {
		return "", err
	}
	if preferred != "" {
		return preferred, nil
	}
	return t.defaultModel, nil
}

// Provider resolves the credential for model and builds its provider.
func (t *Tutor) Provider(ctx context.Context, userID, model string) (provider.Provider, error) {
	kind := provider.Route(model)
	key, err := t.credentials.Resolve(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	return t.factory(ctx, kind, key, t.options)
}

// Generate runs req, forwarding cumulative text to onFragment, and returns
// the final text. A missing API key is not an error: the warning text is
// emitted once and returned instead.
func (t *Tutor) Generate(ctx context.Context, req *Request, onFragment provider.FragmentFunc) (result string, err error) {
	if req == nil {
		return "", fmt.Errorf("nil request: %w", errors.ErrInvalidInput)
	}
	action, err := ParseAction(string(req.Action))
	if err != nil {
		return "", err
	}
	req.Action = action
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx, span := t.tracer.Start(ctx, "tutor.generate", trace.WithAttributes(
		attribute.String("tutor.action", string(action)),
	))
	defer func() { telemetry.End(span, err) }()

	model, err := t.ResolveModel(ctx, req.UserID, req.Model)
	if err != nil {
		return "", err
	}
	kind := provider.Route(model)
	span.SetAttributes(
		attribute.String("tutor.model", model),
		attribute.String("tutor.backend", string(kind)),
	)

	in := req.Inputs()
	handle := handlers[action]

	mwCtx := middleware.NewContext(ctx)
	mwCtx.Action = string(action)
	mwCtx.Input = req.TargetMessage
	mwCtx.Model = model
	mwCtx.UserID = req.UserID

	err = t.middlewares.Execute(mwCtx, func(c *middleware.Context) error {
		p, err := t.Provider(c.Context(), c.UserID, c.Model)
		if err != nil {
			return err
		}
		pl := newPipeline(p, c.Model, onFragment, t.tracer, t.tokens)
		err = handle(c.Context(), pl, t.engine, in)
		c.Output = pl.Result()
		return err
	})

	if stderrors.Is(err, errors.ErrCredentialMissing) {
		warning := MissingCredentialWarning(kind)
		t.logger.WarnContext(ctx, "missing credential", "backend", kind.String(), "action", action)
		span.SetAttributes(attribute.Bool("tutor.credential_missing", true))
		if onFragment != nil {
			onFragment(warning)
		}
		return warning, nil
	}
	if err != nil {
		t.logger.ErrorContext(ctx, "generation failed", "action", action, "model", model, "error", err)
		return "", err
	}
	return mwCtx.Output, nil
}
