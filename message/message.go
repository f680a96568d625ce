package message

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one prior conversation turn as seen by prompt construction.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Field names a text column of a persisted message.
type Field string

const (
	FieldContent     Field = "content"
	FieldCorrection  Field = "correction"
	FieldExplanation Field = "explanation"
	FieldExamples    Field = "examples"
)

// Valid reports whether f names a known message field.
func (f Field) Valid() bool {
	switch f {
	case FieldContent, FieldCorrection, FieldExplanation, FieldExamples:
		return true
	}
	return false
}

// Message represents a single persisted chat turn together with the
// pedagogical artifacts generated about it.
type Message struct {
	ID          string    `json:"id"`
	ChatID      string    `json:"chat_id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Correction  string    `json:"correction,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	Examples    string    `json:"examples,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(chatID string, role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Get returns the value stored in field f.
func (m *Message) Get(f Field) string {
	switch f {
	case FieldCorrection:
		return m.Correction
	case FieldExplanation:
		return m.Explanation
	case FieldExamples:
		return m.Examples
	default:
		return m.Content
	}
}

// Set stores value into field f.
func (m *Message) Set(f Field, value string) error {
	switch f {
	case FieldContent:
		m.Content = value
	case FieldCorrection:
		m.Correction = value
	case FieldExplanation:
		m.Explanation = value
	case FieldExamples:
		m.Examples = value
	default:
		return fmt.Errorf("unknown message field %q", f)
	}
	return nil
}

// Turn converts the message into a prompt history turn.
func (m *Message) Turn() Turn {
	return Turn{Role: m.Role, Content: m.Content}
}

// Clone creates a copy of the message.
func Clone(msg *Message) *Message {
	if msg == nil {
		return nil
	}
	cloned := *msg
	return &cloned
}

// CloneMessages copies a slice of messages.
func CloneMessages(msgs []*Message) []*Message {
	if len(msgs) == 0 {
		return nil
	}
	clones := make([]*Message, 0, len(msgs))
	for _, msg := range msgs {
		clones = append(clones, Clone(msg))
	}
	return clones
}

// Turns converts messages into prompt history turns, preserving order.
func Turns(msgs []*Message) []Turn {
	turns := make([]Turn, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		turns = append(turns, msg.Turn())
	}
	return turns
}
