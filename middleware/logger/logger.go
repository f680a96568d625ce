package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/tandem/middleware"
	"github.com/sweetpotato0/tandem/pkg/logging"
)

// RequestLogger logs incoming generation requests
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware. A nil logger uses
// the process logger.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs the request
func (m *RequestLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	m.logger.InfoContext(ctx.Context(), "generation requested",
		"action", ctx.Action,
		"model", ctx.Model,
		"user_id", ctx.UserID,
		"input_len", len(ctx.Input),
	)
	return next(ctx)
}

// ResponseLogger logs outgoing responses
type ResponseLogger struct {
	logger *slog.Logger
}

// NewResponseLogger creates a response logging middleware
func NewResponseLogger(logger *slog.Logger) *ResponseLogger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &ResponseLogger{logger: logger}
}

// Name returns the middleware name
func (m *ResponseLogger) Name() string {
	return "ResponseLogger"
}

// Execute logs the response
func (m *ResponseLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := time.Now()
	err := next(ctx)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.WarnContext(ctx.Context(), "generation failed",
			"action", ctx.Action,
			"model", ctx.Model,
			"duration", elapsed,
			"error", err,
		)
		return err
	}
	m.logger.InfoContext(ctx.Context(), "generation completed",
		"action", ctx.Action,
		"model", ctx.Model,
		"duration", elapsed,
		"output_len", len(ctx.Output),
	)
	return nil
}
