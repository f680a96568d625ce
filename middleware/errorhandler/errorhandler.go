package errorhandler

import (
	"fmt"

	"github.com/sweetpotato0/tandem/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(ctx *middleware.Context, err error) error

// AnnotateAction prefixes errors with the action that produced them. The
// original error stays reachable through errors.Is.
func AnnotateAction(ctx *middleware.Context, err error) error {
	if ctx.Action == "" {
		return err
	}
	return fmt.Errorf("%s: %w", ctx.Action, err)
}

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(ctx, err)
	}
	return err
}
