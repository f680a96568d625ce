// Package chat persists conversations and drives the tutor over them.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sweetpotato0/tandem/message"
)

// Defaults applied to new chats.
const (
	DefaultTitle      = "Free chat"
	DefaultSourceLang = "Français"
	DefaultTargetLang = "Chinois"
)

// Chat is one conversation between a learner and the tutor.
type Chat struct {
	ID         string             `json:"id"`
	UserID     string             `json:"user_id"`
	Title      string             `json:"title"`
	Topic      string             `json:"topic,omitempty"`
	SourceLang string             `json:"source_lang"`
	TargetLang string             `json:"target_lang"`
	Messages   []*message.Message `json:"messages"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewChat creates a chat, filling in the default title and languages.
func NewChat(userID, title, topic, sourceLang, targetLang string) *Chat {
	if title == "" {
		title = topic
	}
	if title == "" {
		title = DefaultTitle
	}
	if sourceLang == "" {
		sourceLang = DefaultSourceLang
	}
	if targetLang == "" {
		targetLang = DefaultTargetLang
	}
	return &Chat{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      title,
		Topic:      topic,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		CreatedAt:  time.Now().UTC(),
	}
}

// Clone copies the chat and its messages.
func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	cloned := *c
	cloned.Messages = message.CloneMessages(c.Messages)
	if cloned.Messages == nil {
		cloned.Messages = []*message.Message{}
	}
	return &cloned
}

// Index returns the position of message id, or -1.
func (c *Chat) Index(id string) int {
	for i, m := range c.Messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// HistoryBefore returns the non-blank turns preceding message index i.
func (c *Chat) HistoryBefore(i int) []message.Turn {
	if i > len(c.Messages) {
		i = len(c.Messages)
	}
	if i < 0 {
		i = 0
	}
	turns := make([]message.Turn, 0, i)
	for _, t := range message.Turns(c.Messages[:i]) {
		if strings.TrimSpace(t.Content) != "" {
			turns = append(turns, t)
		}
	}
	return turns
}

// Store persists chats and their messages. Messages keep insertion order.
type Store interface {
	CreateChat(ctx context.Context, c *Chat) error
	// GetChat returns the chat with its messages.
	GetChat(ctx context.Context, id string) (*Chat, error)
	// ListChats returns the user's chats, newest first, with their messages.
	ListChats(ctx context.Context, userID string) ([]*Chat, error)
	// UpdateChat saves the title and topic.
	UpdateChat(ctx context.Context, c *Chat) error
	// DeleteChat removes the chat and its messages.
	DeleteChat(ctx context.Context, id string) error

	AppendMessage(ctx context.Context, m *message.Message) error
	GetMessage(ctx context.Context, id string) (*message.Message, error)
	UpdateMessageField(ctx context.Context, id string, field message.Field, value string) error
	// DeleteMessagesFrom removes every message after id in its chat, and id
	// itself when inclusive is set.
	DeleteMessagesFrom(ctx context.Context, id string, inclusive bool) error

	Close() error
}
