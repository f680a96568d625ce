package limiter

import (
	"errors"

	"github.com/sweetpotato0/tandem/middleware"
)

var (
	// ErrTooManyRequests indicates every generation slot is taken
	ErrTooManyRequests = errors.New("too many concurrent generations")
)

// ConcurrencyLimiter caps the number of in-flight generations
type ConcurrencyLimiter struct {
	slots chan struct{}
}

// NewConcurrencyLimiter creates a limiter allowing up to max concurrent
// requests. max <= 0 disables the limit.
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	if max <= 0 {
		return &ConcurrencyLimiter{}
	}
	return &ConcurrencyLimiter{slots: make(chan struct{}, max)}
}

// Name returns the middleware name
func (m *ConcurrencyLimiter) Name() string {
	return "ConcurrencyLimiter"
}

// Execute acquires a slot or fails immediately when saturated
func (m *ConcurrencyLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.slots == nil {
		return next(ctx)
	}

	select {
	case m.slots <- struct{}{}:
	default:
		return ErrTooManyRequests
	}
	defer func() { <-m.slots }()

	return next(ctx)
}

// InFlight returns the number of generations currently holding a slot
func (m *ConcurrencyLimiter) InFlight() int {
	return len(m.slots)
}
