package middleware

import "errors"

var (
	// ErrInvalidContext indicates middleware context is invalid
	ErrInvalidContext = errors.New("invalid middleware context")
)
