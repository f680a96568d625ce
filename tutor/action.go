package tutor

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/tandem/errors"
)

// Action is a generation intent.
type Action string

const (
	ActionContent     Action = "content"
	ActionRegenerate  Action = "regenerate"
	ActionCorrection  Action = "correction"
	ActionExplanation Action = "explanation"
	ActionExamples    Action = "examples"
)

// Actions lists every supported action.
var Actions = []Action{ActionContent, ActionRegenerate, ActionCorrection, ActionExplanation, ActionExamples}

// Valid reports whether a is one of Actions.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Annotates reports whether the action analyses an existing turn instead of
// producing a new one.
func (a Action) Annotates() bool {
	return a == ActionCorrection || a == ActionExplanation || a == ActionExamples
}

// ParseAction converts s into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("action %q: %w", s, errors.ErrUnsupportedAction)
	}
	return a, nil
}
