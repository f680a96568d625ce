package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the operation is not authorized
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrCredentialMissing indicates that no API key is available for the
	// backend a model identifier routes to.
	ErrCredentialMissing = errors.New("credential missing")

	// ErrUnsupportedAction indicates an action outside the closed action set.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// ProviderError wraps a failure reported by a generation backend or its transport.
type ProviderError struct {
	Backend string
	Err     error
}

// NewProviderError wraps err for the named backend. A nil err yields nil.
func NewProviderError(backend string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Backend: backend, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Backend, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err carries a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
