package validator

import (
	"fmt"
	"unicode/utf8"

	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/middleware"
)

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// FilterFunc inspects the generated output
type FilterFunc func(string) error

// MaxLength rejects inputs longer than limit runes.
func MaxLength(limit int) ValidatorFunc {
	return func(input string) error {
		if n := utf8.RuneCountInString(input); n > limit {
			return fmt.Errorf("input has %d characters, limit is %d: %w", n, limit, errors.ErrInvalidInput)
		}
		return nil
	}
}

// InputValidator validates the request input
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// ResponseFilter checks the output after generation
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil {
		return err
	}
	if m.filter != nil {
		return m.filter(ctx.Output)
	}
	return nil
}
