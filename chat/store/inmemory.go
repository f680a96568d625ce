package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
)

// InMemoryStore implements chat.Store in process memory.
type InMemoryStore struct {
	chats    map[string]*chat.Chat
	messages map[string]string // message ID -> chat ID
	mu       sync.RWMutex
}

var _ chat.Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chats:    make(map[string]*chat.Chat),
		messages: make(map[string]string),
	}
}

// CreateChat implements chat.Store.
func (s *InMemoryStore) CreateChat(ctx context.Context, c *chat.Chat) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("chat cannot be nil: %w", errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[c.ID]; ok {
		return fmt.Errorf("chat %s: %w", c.ID, errors.ErrAlreadyExists)
	}
	stored := c.Clone()
	for _, m := range stored.Messages {
		s.messages[m.ID] = c.ID
	}
	s.chats[c.ID] = stored
	return nil
}

// GetChat implements chat.Store.
func (s *InMemoryStore) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", id, errors.ErrNotFound)
	}
	return c.Clone(), nil
}

// ListChats implements chat.Store.
func (s *InMemoryStore) ListChats(ctx context.Context, userID string) ([]*chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := make([]*chat.Chat, 0)
	for _, c := range s.chats {
		if c.UserID == userID {
			chats = append(chats, c.Clone())
		}
	}
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

// UpdateChat implements chat.Store.
func (s *InMemoryStore) UpdateChat(ctx context.Context, c *chat.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.chats[c.ID]
	if !ok {
		return fmt.Errorf("chat %s: %w", c.ID, errors.ErrNotFound)
	}
	stored.Title = c.Title
	stored.Topic = c.Topic
	return nil
}

// DeleteChat implements chat.Store.
func (s *InMemoryStore) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[id]
	if !ok {
		return fmt.Errorf("chat %s: %w", id, errors.ErrNotFound)
	}
	for _, m := range c.Messages {
		delete(s.messages, m.ID)
	}
	delete(s.chats, id)
	return nil
}

// AppendMessage implements chat.Store.
func (s *InMemoryStore) AppendMessage(ctx context.Context, m *message.Message) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("message cannot be nil: %w", errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[m.ChatID]
	if !ok {
		return fmt.Errorf("chat %s: %w", m.ChatID, errors.ErrNotFound)
	}
	if _, exists := s.messages[m.ID]; exists {
		return fmt.Errorf("message %s: %w", m.ID, errors.ErrAlreadyExists)
	}
	c.Messages = append(c.Messages, message.Clone(m))
	s.messages[m.ID] = c.ID
	return nil
}

func (s *InMemoryStore) locate(id string) (*chat.Chat, int, error) {
	chatID, ok := s.messages[id]
	if !ok {
		return nil, -1, fmt.Errorf("message %s: %w", id, errors.ErrNotFound)
	}
	c := s.chats[chatID]
	return c, c.Index(id), nil
}

// GetMessage implements chat.Store.
func (s *InMemoryStore) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, i, err := s.locate(id)
	if err != nil {
		return nil, err
	}
	return message.Clone(c.Messages[i]), nil
}

// UpdateMessageField implements chat.Store.
func (s *InMemoryStore) UpdateMessageField(ctx context.Context, id string, field message.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("field %q: %w", field, errors.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, i, err := s.locate(id)
	if err != nil {
		return err
	}
	return c.Messages[i].Set(field, value)
}

// DeleteMessagesFrom implements chat.Store.
func (s *InMemoryStore) DeleteMessagesFrom(ctx context.Context, id string, inclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, i, err := s.locate(id)
	if err != nil {
		return err
	}
	cut := i + 1
	if inclusive {
		cut = i
	}
	for _, m := range c.Messages[cut:] {
		delete(s.messages, m.ID)
	}
	c.Messages = c.Messages[:cut:cut]
	return nil
}

// Close implements chat.Store.
func (s *InMemoryStore) Close() error {
	return nil
}
