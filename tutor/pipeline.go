package tutor

import (
	"context"
	"strings"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TokenCounter counts prompt tokens for tracing.
type TokenCounter interface {
	CountTokens(text string) int
}

// pipeline runs the stages of one handler against a single provider. It
// owns the running text and guarantees that the returned result is the last
// value passed to onFragment.
type pipeline struct {
	provider   provider.Provider
	model      string
	onFragment provider.FragmentFunc
	tracer     trace.Tracer
	tokens     TokenCounter

	global  string
	emitted string
	calls   int
}

func newPipeline(p provider.Provider, model string, onFragment provider.FragmentFunc, tracer trace.Tracer, tokens TokenCounter) *pipeline {
	return &pipeline{
		provider:   p,
		model:      model,
		onFragment: onFragment,
		tracer:     tracer,
		tokens:     tokens,
	}
}

// forward emits text if it extends what the caller has already seen.
func (p *pipeline) forward(text string) {
	if len(text) <= len(p.emitted) {
		return
	}
	p.emitted = text
	if p.onFragment != nil {
		p.onFragment(text)
	}
}

// Append adds fixed markup between stages and shows it immediately.
func (p *pipeline) Append(text string) {
	p.global += text
	p.forward(p.global)
}

// Stage streams one provider call after the current text and returns the
// stage's own text.
func (p *pipeline) Stage(ctx context.Context, name, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ctx, span := p.tracer.Start(ctx, "tutor.stage", trace.WithAttributes(
		attribute.String("tutor.stage", name),
		attribute.String("tutor.model", p.model),
	))
	if p.tokens != nil {
		span.SetAttributes(attribute.Int("tutor.prompt_tokens", p.tokens.CountTokens(prompt)))
	}

	base := p.global
	seen := ""
	p.calls++
	result, err := p.provider.Generate(ctx, prompt, p.model, func(textSoFar string) {
		seen = textSoFar
		p.forward(base + textSoFar)
	})
	telemetry.End(span, err)
	if err != nil {
		return "", err
	}

	// What was streamed wins when the returned text does not extend it.
	if !strings.HasPrefix(result, seen) {
		result = seen
	}
	p.global = base + result
	p.forward(p.global)
	return result, nil
}

// Result returns the final text.
func (p *pipeline) Result() string {
	return p.global
}
