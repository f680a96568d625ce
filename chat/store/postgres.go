package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/config"
	errorskg "github.com/sweetpotato0/tandem/errors"
	"github.com/sweetpotato0/tandem/message"
)

// PostgresStore implements chat.Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

var _ chat.Store = (*PostgresStore)(nil)

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DefaultPostgresConfig returns default PostgreSQL configuration
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		DBName:   "tandem",
		SSLMode:  "disable",
	}
}

// NewPostgresStore creates a new PostgreSQL-based chat store
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	if cfg == nil {
		cfg = DefaultPostgresConfig()
	}
	if err := config.ValidatePostgresConfig(cfg.Host, cfg.Port, cfg.User, cfg.DBName, cfg.SSLMode); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.createTables(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS chats (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		title TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		source_lang VARCHAR(64) NOT NULL,
		target_lang VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chats_user_created ON chats(user_id, created_at DESC);
	CREATE TABLE IF NOT EXISTS messages (
		seq BIGSERIAL UNIQUE,
		id VARCHAR(64) PRIMARY KEY,
		chat_id VARCHAR(64) NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role VARCHAR(16) NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		correction TEXT NOT NULL DEFAULT '',
		explanation TEXT NOT NULL DEFAULT '',
		examples TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat_seq ON messages(chat_id, seq);
	`

	_, err := s.db.ExecContext(ctx, query)
	return err
}

// CreateChat implements chat.Store
func (s *PostgresStore) CreateChat(ctx context.Context, c *chat.Chat) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("chat cannot be nil: %w", errorskg.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO chats (id, user_id, title, topic, source_lang, target_lang, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.Title, c.Topic, c.SourceLang, c.TargetLang, c.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("chat %s: %w", c.ID, errorskg.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert chat: %w", err)
	}

	for _, m := range c.Messages {
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
	}

	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMessage(ctx context.Context, db execer, m *message.Message) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO messages (id, chat_id, role, content, correction, explanation, examples, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.ChatID, string(m.Role), m.Content, m.Correction, m.Explanation, m.Examples, m.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return fmt.Errorf("message %s: %w", m.ID, errorskg.ErrAlreadyExists)
			case "23503":
				return fmt.Errorf("chat %s: %w", m.ChatID, errorskg.ErrNotFound)
			}
		}
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

const chatColumns = `id, user_id, title, topic, source_lang, target_lang, created_at`

const messageColumns = `id, chat_id, role, content, correction, explanation, examples, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanChat(row scanner) (*chat.Chat, error) {
	var c chat.Chat
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Topic, &c.SourceLang, &c.TargetLang, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Messages = []*message.Message{}
	return &c, nil
}

func scanMessage(row scanner) (*message.Message, error) {
	var (
		m    message.Message
		role string
	)
	if err := row.Scan(&m.ID, &m.ChatID, &role, &m.Content, &m.Correction, &m.Explanation, &m.Examples, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = message.Role(role)
	return &m, nil
}

// GetChat implements chat.Store
func (s *PostgresStore) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chat %s: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	if err := s.attachMessages(ctx, []*chat.Chat{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ListChats implements chat.Store
func (s *PostgresStore) ListChats(ctx context.Context, userID string) ([]*chat.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chatColumns+` FROM chats WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*chat.Chat, 0)
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chats: %w", err)
	}

	if err := s.attachMessages(ctx, chats); err != nil {
		return nil, err
	}
	return chats, nil
}

func (s *PostgresStore) attachMessages(ctx context.Context, chats []*chat.Chat) error {
	if len(chats) == 0 {
		return nil
	}
	byID := make(map[string]*chat.Chat, len(chats))
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = ANY($1) ORDER BY seq`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		c := byID[m.ChatID]
		c.Messages = append(c.Messages, m)
	}
	return rows.Err()
}

// UpdateChat implements chat.Store
func (s *PostgresStore) UpdateChat(ctx context.Context, c *chat.Chat) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chats SET title = $2, topic = $3 WHERE id = $1`, c.ID, c.Title, c.Topic)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	return expectRow(res, "chat", c.ID)
}

// DeleteChat implements chat.Store
func (s *PostgresStore) DeleteChat(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	return expectRow(res, "chat", id)
}

// AppendMessage implements chat.Store
func (s *PostgresStore) AppendMessage(ctx context.Context, m *message.Message) error {
	if m == nil || m.ID == "" {
		return fmt.Errorf("message cannot be nil: %w", errorskg.ErrInvalidInput)
	}
	return insertMessage(ctx, s.db, m)
}

// GetMessage implements chat.Store
func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*message.Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id)
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("message %s: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	return m, nil
}

// UpdateMessageField implements chat.Store
func (s *PostgresStore) UpdateMessageField(ctx context.Context, id string, field message.Field, value string) error {
	if !field.Valid() {
		return fmt.Errorf("field %q: %w", field, errorskg.ErrInvalidInput)
	}

	// field is one of the fixed column names checked above.
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET `+string(field)+` = $2 WHERE id = $1`, id, value)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	return expectRow(res, "message", id)
}

// DeleteMessagesFrom implements chat.Store
func (s *PostgresStore) DeleteMessagesFrom(ctx context.Context, id string, inclusive bool) error {
	var (
		chatID string
		seq    int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT chat_id, seq FROM messages WHERE id = $1`, id).Scan(&chatID, &seq)
	if err == sql.ErrNoRows {
		return fmt.Errorf("message %s: %w", id, errorskg.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}

	query := `DELETE FROM messages WHERE chat_id = $1 AND seq > $2`
	if inclusive {
		query = `DELETE FROM messages WHERE chat_id = $1 AND seq >= $2`
	}
	if _, err := s.db.ExecContext(ctx, query, chatID, seq); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, errorskg.ErrNotFound)
	}
	return nil
}
