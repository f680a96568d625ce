package provider

import (
	"strings"

	"github.com/sweetpotato0/tandem/errors"
)

// Accumulator turns backend deltas into cumulative fragments.
type Accumulator struct {
	buf        strings.Builder
	onFragment FragmentFunc
}

// NewAccumulator creates an accumulator forwarding to onFragment, which may be nil.
func NewAccumulator(onFragment FragmentFunc) *Accumulator {
	return &Accumulator{onFragment: onFragment}
}

// Append adds a delta. Empty deltas are ignored so fragments strictly grow.
func (a *Accumulator) Append(delta string) {
	if delta == "" {
		return
	}
	a.buf.WriteString(delta)
	if a.onFragment != nil {
		a.onFragment(a.buf.String())
	}
}

// Text returns the text accumulated so far.
func (a *Accumulator) Text() string {
	return a.buf.String()
}

// CheckPrompt rejects empty prompts before any network call.
func CheckPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.ErrInvalidInput
	}
	return nil
}
