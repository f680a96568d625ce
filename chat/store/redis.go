package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/config"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
)

// RedisStore implements chat.Store using Redis.
//
// Layout under the prefix:
//
//	chat:<id>            chat JSON without messages
//	chat:<id>:messages   list of message IDs in order
//	msg:<id>             message JSON
//	user:<id>:chats      sorted set of chat IDs scored by creation time
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ chat.Store = (*RedisStore)(nil)

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore creates a new Redis-based chat store
func NewRedisStore(cfg *RedisConfig) (*RedisStore, error) {
	if cfg == nil {
		cfg = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "tandem:chat:",
		}
	}
	if err := config.ValidateRedisConfig(cfg.Addr, cfg.DB, cfg.Prefix); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) chatKey(id string) string     { return s.prefix + "chat:" + id }
func (s *RedisStore) orderKey(id string) string    { return s.prefix + "chat:" + id + ":messages" }
func (s *RedisStore) messageKey(id string) string  { return s.prefix + "msg:" + id }
func (s *RedisStore) userKey(userID string) string { return s.prefix + "user:" + userID + ":chats" }

// CreateChat implements chat.Store
func (s *RedisStore) CreateChat(ctx context.Context, c *chat.Chat) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("chat cannot be nil: %w", errors.ErrInvalidInput)
	}

	meta := *c
	meta.Messages = nil
	data, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.chatKey(c.ID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	if !created {
		return fmt.Errorf("chat %s: %w", c.ID, errors.ErrAlreadyExists)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, s.userKey(c.UserID), redis.Z{
			Score:  float64(c.CreatedAt.UnixNano()),
			Member: c.ID,
		})
		for _, m := range c.Messages {
			if err := s.queueMessage(ctx, pipe, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save chat: %w", err)
	}
	return nil
}

func (s *RedisStore) queueMessage(ctx context.Context, pipe redis.Pipeliner, m *message.Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	pipe.Set(ctx, s.messageKey(m.ID), data, 0)
	pipe.RPush(ctx, s.orderKey(m.ChatID), m.ID)
	return nil
}

func (s *RedisStore) loadChat(ctx context.Context, id string) (*chat.Chat, error) {
	data, err := s.client.Get(ctx, s.chatKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("chat %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	var c chat.Chat
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) loadMessages(ctx context.Context, chatID string) ([]*message.Message, error) {
	ids, err := s.client.LRange(ctx, s.orderKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load message order: %w", err)
	}
	messages := make([]*message.Message, 0, len(ids))
	if len(ids) == 0 {
		return messages, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.messageKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var m message.Message
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, &m)
	}
	return messages, nil
}

// GetChat implements chat.Store
func (s *RedisStore) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	c, err := s.loadChat(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Messages, err = s.loadMessages(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats implements chat.Store
func (s *RedisStore) ListChats(ctx context.Context, userID string) ([]*chat.Chat, error) {
	ids, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}

	chats := make([]*chat.Chat, 0, len(ids))
	for _, id := range ids {
		c, err := s.GetChat(ctx, id)
		if stderrors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, nil
}

// UpdateChat implements chat.Store
func (s *RedisStore) UpdateChat(ctx context.Context, c *chat.Chat) error {
	stored, err := s.loadChat(ctx, c.ID)
	if err != nil {
		return err
	}
	stored.Title = c.Title
	stored.Topic = c.Topic

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}
	if err := s.client.Set(ctx, s.chatKey(c.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return nil
}

// DeleteChat implements chat.Store
func (s *RedisStore) DeleteChat(ctx context.Context, id string) error {
	c, err := s.loadChat(ctx, id)
	if err != nil {
		return err
	}
	ids, err := s.client.LRange(ctx, s.orderKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to load message order: %w", err)
	}

	keys := []string{s.chatKey(id), s.orderKey(id)}
	for _, mid := range ids {
		keys = append(keys, s.messageKey(mid))
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, s.userKey(c.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return nil
}

// AppendMessage implements chat.Store
func (s *RedisStore) AppendMessage(ctx context.Context, m *message.Message) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("message cannot be nil: %w", errors.ErrInvalidInput)
	}
	if _, err := s.loadChat(ctx, m.ChatID); err != nil {
		return err
	}
	exists, err := s.client.Exists(ctx, s.messageKey(m.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check message: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("message %s: %w", m.ID, errors.ErrAlreadyExists)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.queueMessage(ctx, pipe, m)
	})
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetMessage implements chat.Store
func (s *RedisStore) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	data, err := s.client.Get(ctx, s.messageKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("message %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	var m message.Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}

// UpdateMessageField implements chat.Store
func (s *RedisStore) UpdateMessageField(ctx context.Context, id string, field message.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("field %q: %w", field, errors.ErrInvalidInput)
	}
	m, err := s.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	if err := m.Set(field, value); err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	if err := s.client.Set(ctx, s.messageKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return nil
}

// DeleteMessagesFrom implements chat.Store
func (s *RedisStore) DeleteMessagesFrom(ctx context.Context, id string, inclusive bool) error {
	m, err := s.GetMessage(ctx, id)
	if err != nil {
		return err
	}
	ids, err := s.client.LRange(ctx, s.orderKey(m.ChatID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to load message order: %w", err)
	}

	cut := -1
	for i, mid := range ids {
		if mid == id {
			cut = i
			break
		}
	}
	if cut < 0 {
		return fmt.Errorf("message %s: %w", id, errors.ErrNotFound)
	}
	if !inclusive {
		cut++
	}
	if cut >= len(ids) {
		return nil
	}

	removed := make([]string, 0, len(ids)-cut)
	for _, mid := range ids[cut:] {
		removed = append(removed, s.messageKey(mid))
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if cut == 0 {
			pipe.Del(ctx, s.orderKey(m.ChatID))
		} else {
			pipe.LTrim(ctx, s.orderKey(m.ChatID), 0, int64(cut-1))
		}
		pipe.Del(ctx, removed...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
