package tutor

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/language"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/prompt"
)

// Request describes one generation. History excludes the turn being generated.
type Request struct {
	Action         Action         `json:"action"`
	TargetMessage  string         `json:"target_message"`
	TargetLanguage string         `json:"target_language"`
	SourceLanguage string         `json:"source_language"`
	History        []message.Turn `json:"history,omitempty"`
	Topic          string         `json:"topic,omitempty"`
	Model          string         `json:"model,omitempty"`
	UserID         string         `json:"user_id,omitempty"`
}

// Validate checks the request fields. The action itself is checked by
// ParseAction.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.TargetLanguage) == "" {
		return fmt.Errorf("target language is required: %w", errors.ErrInvalidInput)
	}
	if strings.TrimSpace(r.SourceLanguage) == "" {
		return fmt.Errorf("source language is required: %w", errors.ErrInvalidInput)
	}
	if r.Action.Annotates() && strings.TrimSpace(r.TargetMessage) == "" {
		return fmt.Errorf("%s needs a target message: %w", r.Action, errors.ErrInvalidInput)
	}
	return nil
}

// Inputs builds the prompt inputs shared by every stage of the request.
func (r *Request) Inputs() *prompt.Inputs {
	return &prompt.Inputs{
		TargetLanguage: r.TargetLanguage,
		SourceLanguage: r.SourceLanguage,
		Labels:         language.Resolve(r.TargetLanguage),
		History:        message.RenderHistory(r.History),
		TargetMessage:  r.TargetMessage,
		TopicContext:   prompt.TopicContext(strings.TrimSpace(r.Topic)),
	}
}
