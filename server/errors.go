package server

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/middleware/limiter"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case stderrors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrInvalidInput), stderrors.Is(err, errors.ErrUnsupportedAction):
		return http.StatusBadRequest
	case stderrors.Is(err, errors.ErrUnauthorized), stderrors.Is(err, errors.ErrCredentialMissing):
		return http.StatusUnauthorized
	case stderrors.Is(err, errors.ErrAlreadyExists):
		return http.StatusConflict
	case stderrors.Is(err, limiter.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// errorHandler renders domain errors as JSON and defers to echo for its own.
func (s *Server) errorHandler(err error, c echo.Context) {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		s.echo.DefaultHTTPErrorHandler(err, c)
		return
	}

	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method, "path", c.Path(), "error", err)
		msg = http.StatusText(status)
	}
	s.echo.DefaultHTTPErrorHandler(echo.NewHTTPError(status, msg), c)
}
