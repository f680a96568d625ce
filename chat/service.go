package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sweetpotato0/tandem/contrib/provider"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
	"github.com/sweetpotato0/tandem/pkg/logging"
	"github.com/sweetpotato0/tandem/tutor"
)

// StartMarker is the target message of the opening turn, before the learner
// has said anything.
const StartMarker = "START_CONVERSATION"

// Generator runs one tutor request.
type Generator interface {
	Generate(ctx context.Context, req *tutor.Request, onFragment provider.FragmentFunc) (string, error)
}

// Turn describes one generation requested by a caller.
type Turn struct {
	UserID     string
	Model      string
	OnFragment provider.FragmentFunc
}

// Service drives the tutor over persisted chats. Every generated text is
// stored into its message field once the generation returns.
type Service struct {
	store  Store
	tutor  Generator
	logger *slog.Logger
}

// NewService creates a chat service. A nil logger uses the process logger.
func NewService(store Store, gen Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.WithComponent("chat")
	}
	return &Service{store: store, tutor: gen, logger: logger}
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// CreateChat stores a new chat together with its empty opening assistant turn.
func (s *Service) CreateChat(ctx context.Context, userID, title, topic, sourceLang, targetLang string) (*Chat, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	c := NewChat(userID, strings.TrimSpace(title), strings.TrimSpace(topic), sourceLang, targetLang)
	c.Messages = []*message.Message{message.NewMessage(c.ID, message.RoleAssistant, "")}

	if err := s.store.CreateChat(ctx, c); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "chat created", "chat_id", c.ID, "user_id", userID)
	return c, nil
}

// GetChat returns one of the user's chats.
func (s *Service) GetChat(ctx context.Context, userID, chatID string) (*Chat, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	c, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, fmt.Errorf("chat %s: %w", chatID, errors.ErrNotFound)
	}
	return c, nil
}

// ListChats returns the user's chats, newest first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	return s.store.ListChats(ctx, userID)
}

// RenameChat changes the chat title.
func (s *Service) RenameChat(ctx context.Context, userID, chatID, title string) (*Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", errors.ErrInvalidInput)
	}
	c, err := s.GetChat(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	c.Title = title
	if err := s.store.UpdateChat(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteChat removes the chat and its messages.
func (s *Service) DeleteChat(ctx context.Context, userID, chatID string) error {
	if _, err := s.GetChat(ctx, userID, chatID); err != nil {
		return err
	}
	return s.store.DeleteChat(ctx, chatID)
}

// locate loads the message, its chat and its position in the chat.
func (s *Service) locate(ctx context.Context, userID, messageID string) (*Chat, int, error) {
	m, err := s.store.GetMessage(ctx, messageID)
	if err != nil {
		return nil, -1, err
	}
	c, err := s.GetChat(ctx, userID, m.ChatID)
	if err != nil {
		return nil, -1, err
	}
	i := c.Index(messageID)
	if i < 0 {
		return nil, -1, fmt.Errorf("message %s: %w", messageID, errors.ErrNotFound)
	}
	return c, i, nil
}

// DeleteMessage removes the message and everything after it, or only what
// follows it when onlyAfter is set.
func (s *Service) DeleteMessage(ctx context.Context, userID, messageID string, onlyAfter bool) error {
	if _, _, err := s.locate(ctx, userID, messageID); err != nil {
		return err
	}
	return s.store.DeleteMessagesFrom(ctx, messageID, !onlyAfter)
}

// Start generates the opening turn of the chat from its topic.
func (s *Service) Start(ctx context.Context, chatID string, turn Turn) (*message.Message, error) {
	c, err := s.GetChat(ctx, turn.UserID, chatID)
	if err != nil {
		return nil, err
	}

	var opening *message.Message
	if len(c.Messages) > 0 && c.Messages[0].Role == message.RoleAssistant {
		opening = c.Messages[0]
	} else if len(c.Messages) == 0 {
		opening = message.NewMessage(c.ID, message.RoleAssistant, "")
		if err := s.store.AppendMessage(ctx, opening); err != nil {
			return nil, err
		}
		c.Messages = append(c.Messages, opening)
	} else {
		return nil, fmt.Errorf("chat %s already started: %w", chatID, errors.ErrInvalidInput)
	}

	return s.generate(ctx, c, 0, tutor.ActionContent, StartMarker, turn)
}

// Send stores the learner's message and generates the reply.
func (s *Service) Send(ctx context.Context, chatID, content string, turn Turn) (*message.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message is empty: %w", errors.ErrInvalidInput)
	}
	c, err := s.GetChat(ctx, turn.UserID, chatID)
	if err != nil {
		return nil, err
	}

	learner := message.NewMessage(c.ID, message.RoleUser, content)
	if err := s.store.AppendMessage(ctx, learner); err != nil {
		return nil, err
	}
	reply := message.NewMessage(c.ID, message.RoleAssistant, "")
	if err := s.store.AppendMessage(ctx, reply); err != nil {
		return nil, err
	}
	c.Messages = append(c.Messages, learner, reply)

	return s.generate(ctx, c, len(c.Messages)-1, tutor.ActionContent, content, turn)
}

// Annotate generates a correction, explanation or examples for a message
// and stores it in the matching field.
func (s *Service) Annotate(ctx context.Context, messageID string, action tutor.Action, turn Turn) (*message.Message, error) {
	action, err := tutor.ParseAction(string(action))
	if err != nil {
		return nil, err
	}
	if !action.Annotates() {
		return nil, fmt.Errorf("action %q does not annotate: %w", action, errors.ErrInvalidInput)
	}
	c, i, err := s.locate(ctx, turn.UserID, messageID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, c, i, action, c.Messages[i].Content, turn)
}

// Regenerate drops every later turn and rewrites the message.
func (s *Service) Regenerate(ctx context.Context, messageID string, turn Turn) (*message.Message, error) {
	c, i, err := s.locate(ctx, turn.UserID, messageID)
	if err != nil {
		return nil, err
	}
	if c.Messages[i].Role != message.RoleAssistant {
		return nil, fmt.Errorf("message %s is not a reply: %w", messageID, errors.ErrInvalidInput)
	}
	if err := s.store.DeleteMessagesFrom(ctx, messageID, false); err != nil {
		return nil, err
	}
	c.Messages = c.Messages[:i+1]

	target := c.Topic
	if i > 0 {
		target = c.Messages[i-1].Content
	}
	return s.generate(ctx, c, i, tutor.ActionRegenerate, target, turn)
}

// Edit rewrites a learner message, drops the turns after it and generates a
// fresh reply.
func (s *Service) Edit(ctx context.Context, messageID, content string, turn Turn) (*message.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message is empty: %w", errors.ErrInvalidInput)
	}
	c, i, err := s.locate(ctx, turn.UserID, messageID)
	if err != nil {
		return nil, err
	}
	if c.Messages[i].Role != message.RoleUser {
		return nil, fmt.Errorf("message %s is not a learner message: %w", messageID, errors.ErrInvalidInput)
	}

	if err := s.store.UpdateMessageField(ctx, messageID, message.FieldContent, content); err != nil {
		return nil, err
	}
	if err := s.store.DeleteMessagesFrom(ctx, messageID, false); err != nil {
		return nil, err
	}
	c.Messages[i].Content = content
	c.Messages = c.Messages[:i+1]

	reply := message.NewMessage(c.ID, message.RoleAssistant, "")
	if err := s.store.AppendMessage(ctx, reply); err != nil {
		return nil, err
	}
	c.Messages = append(c.Messages, reply)

	return s.generate(ctx, c, len(c.Messages)-1, tutor.ActionContent, content, turn)
}

// generate runs action for message i of c and persists the final text into
// the field the action writes.
func (s *Service) generate(ctx context.Context, c *Chat, i int, action tutor.Action, target string, turn Turn) (*message.Message, error) {
	m := c.Messages[i]
	field := FieldFor(action)

	req := &tutor.Request{
		Action:         action,
		TargetMessage:  target,
		TargetLanguage: c.TargetLang,
		SourceLanguage: c.SourceLang,
		History:        c.HistoryBefore(i),
		Topic:          c.Topic,
		Model:          turn.Model,
		UserID:         turn.UserID,
	}

	result, err := s.tutor.Generate(ctx, req, turn.OnFragment)
	if err != nil {
		return nil, err
	}

	// The missing-key warning goes back to the caller but is stored as an
	// empty turn so it never reaches later histories.
	stored := result
	if tutor.IsCredentialWarning(result) {
		stored = ""
	}
	if err := s.store.UpdateMessageField(ctx, m.ID, field, stored); err != nil {
		return nil, err
	}
	if err := m.Set(field, stored); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "message generated", "chat_id", c.ID, "message_id", m.ID, "action", action)

	out := message.Clone(m)
	if err := out.Set(field, result); err != nil {
		return nil, err
	}
	return out, nil
}

// FieldFor returns the message field an action writes to.
func FieldFor(action tutor.Action) message.Field {
	switch action {
	case tutor.ActionCorrection:
		return message.FieldCorrection
	case tutor.ActionExplanation:
		return message.FieldExplanation
	case tutor.ActionExamples:
		return message.FieldExamples
	default:
		return message.FieldContent
	}
}
