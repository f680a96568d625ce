package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/config"
	"github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements chat.Store using MongoDB
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	chats    *mongo.Collection
	messages *mongo.Collection

	seqMu   sync.Mutex
	lastSeq int64
}

var _ chat.Store = (*MongoStore)(nil)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI      string
	Database string
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:      "mongodb://localhost:27017",
		Database: "tandem",
	}
}

type mongoChat struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Title      string    `bson:"title"`
	Topic      string    `bson:"topic"`
	SourceLang string    `bson:"source_lang"`
	TargetLang string    `bson:"target_lang"`
	CreatedAt  time.Time `bson:"created_at"`
}

type mongoMessage struct {
	ID          string    `bson:"_id"`
	ChatID      string    `bson:"chat_id"`
	Seq         int64     `bson:"seq"`
	Role        string    `bson:"role"`
	Content     string    `bson:"content"`
	Correction  string    `bson:"correction"`
	Explanation string    `bson:"explanation"`
	Examples    string    `bson:"examples"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (m *mongoMessage) toMessage() *message.Message {
	return &message.Message{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Role:        message.Role(m.Role),
		Content:     m.Content,
		Correction:  m.Correction,
		Explanation: m.Explanation,
		Examples:    m.Examples,
		CreatedAt:   m.CreatedAt,
	}
}

func (c *mongoChat) toChat() *chat.Chat {
	return &chat.Chat{
		ID:         c.ID,
		UserID:     c.UserID,
		Title:      c.Title,
		Topic:      c.Topic,
		SourceLang: c.SourceLang,
		TargetLang: c.TargetLang,
		Messages:   []*message.Message{},
		CreatedAt:  c.CreatedAt,
	}
}

// NewMongoStore creates a new MongoDB-based chat store
func NewMongoStore(cfg *MongoConfig) (*MongoStore, error) {
	if cfg == nil {
		cfg = DefaultMongoConfig()
	}
	if err := config.ValidateMongoDBConfig(cfg.URI, cfg.Database, "chats"); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	store := &MongoStore{
		client:   client,
		db:       db,
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}

	if err := store.createIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return store, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	if _, err := s.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "seq", Value: 1}},
	})
	return err
}

// nextSeq returns a strictly increasing sequence number for message order.
func (s *MongoStore) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func (s *MongoStore) toDocument(m *message.Message) mongoMessage {
	return mongoMessage{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Seq:         s.nextSeq(),
		Role:        string(m.Role),
		Content:     m.Content,
		Correction:  m.Correction,
		Explanation: m.Explanation,
		Examples:    m.Examples,
		CreatedAt:   m.CreatedAt,
	}
}

// CreateChat implements chat.Store
func (s *MongoStore) CreateChat(ctx context.Context, c *chat.Chat) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("chat cannot be nil: %w", errors.ErrInvalidInput)
	}

	_, err := s.chats.InsertOne(ctx, mongoChat{
		ID:         c.ID,
		UserID:     c.UserID,
		Title:      c.Title,
		Topic:      c.Topic,
		SourceLang: c.SourceLang,
		TargetLang: c.TargetLang,
		CreatedAt:  c.CreatedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("chat %s: %w", c.ID, errors.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	if len(c.Messages) == 0 {
		return nil
	}
	docs := make([]any, 0, len(c.Messages))
	for _, m := range c.Messages {
		docs = append(docs, s.toDocument(m))
	}
	if _, err := s.messages.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert messages: %w", err)
	}
	return nil
}

// GetChat implements chat.Store
func (s *MongoStore) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	var doc mongoChat
	err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("chat %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	c := doc.toChat()
	if err := s.attachMessages(ctx, []*chat.Chat{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats implements chat.Store
func (s *MongoStore) ListChats(ctx context.Context, userID string) ([]*chat.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.chats.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer cursor.Close(ctx)

	chats := make([]*chat.Chat, 0)
	for cursor.Next(ctx) {
		var doc mongoChat
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode chat: %w", err)
		}
		chats = append(chats, doc.toChat())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	if err := s.attachMessages(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *MongoStore) attachMessages(ctx context.Context, chats []*chat.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	byID := make(map[string]*chat.Chat, len(chats))
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	opts := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"chat_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc mongoMessage
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode message: %w", err)
		}
		c := byID[doc.ChatID]
		c.Messages = append(c.Messages, doc.toMessage())
	}
	return cursor.Err()
}

// UpdateChat implements chat.Store
func (s *MongoStore) UpdateChat(ctx context.Context, c *chat.Chat) error {
	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": c.ID},
		bson.M{"$set": bson.M{"title": c.Title, "topic": c.Topic}})
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("chat %s: %w", c.ID, errors.ErrNotFound)
	}
	return nil
}

// DeleteChat implements chat.Store
func (s *MongoStore) DeleteChat(ctx context.Context, id string) error {
	res, err := s.chats.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("chat %s: %w", id, errors.ErrNotFound)
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{"chat_id": id}); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// AppendMessage implements chat.Store
func (s *MongoStore) AppendMessage(ctx context.Context, m *message.Message) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("message cannot be nil: %w", errors.ErrInvalidInput)
	}
	n, err := s.chats.CountDocuments(ctx, bson.M{"_id": m.ChatID})
	if err != nil {
		return fmt.Errorf("failed to check chat: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("chat %s: %w", m.ChatID, errors.ErrNotFound)
	}

	_, err = s.messages.InsertOne(ctx, s.toDocument(m))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("message %s: %w", m.ID, errors.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *MongoStore) findMessage(ctx context.Context, id string) (*mongoMessage, error) {
	var doc mongoMessage
	err := s.messages.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("message %s: %w", id, errors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return &doc, nil
}

// GetMessage implements chat.Store
func (s *MongoStore) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	doc, err := s.findMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc.toMessage(), nil
}

// UpdateMessageField implements chat.Store
func (s *MongoStore) UpdateMessageField(ctx context.Context, id string, field message.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("field %q: %w", field, errors.ErrInvalidInput)
	}
	res, err := s.messages.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{string(field): value}})
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("message %s: %w", id, errors.ErrNotFound)
	}
	return nil
}

// DeleteMessagesFrom implements chat.Store
func (s *MongoStore) DeleteMessagesFrom(ctx context.Context, id string, inclusive bool) error {
	doc, err := s.findMessage(ctx, id)
	if err != nil {
		return err
	}
	op := "$gt"
	if inclusive {
		op = "$gte"
	}
	if _, err := s.messages.DeleteMany(ctx, bson.M{
		"chat_id": doc.ChatID,
		"seq":     bson.M{op: doc.Seq},
	}); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Drop removes both collections. Used by tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	if err := s.chats.Drop(ctx); err != nil {
		return err
	}
	return s.messages.Drop(ctx)
}

// Close closes the MongoDB connection
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
