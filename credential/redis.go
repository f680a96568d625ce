package credential

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/tandem/errors"
)

// RedisStore keeps one hash per user.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis configuration for credentials.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisStore creates a new Redis-based credential store.
func NewRedisStore(config *RedisConfig) *RedisStore {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "tandem:credential:",
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	return &RedisStore{client: client, prefix: config.Prefix}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, userID, name string) (string, error) {
	v, err := s.client.HGet(ctx, s.userKey(userID), name).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credential: %w", err)
	}
	return v, nil
}

// Set implements Store. An empty value removes the field.
func (s *RedisStore) Set(ctx context.Context, userID, name, value string) error {
	if !ValidName(name) {
		return fmt.Errorf("credential %q: %w", name, errors.ErrInvalidInput)
	}

	key := s.userKey(userID)
	if value == "" {
		if err := s.client.HDel(ctx, key, name).Err(); err != nil {
			return fmt.Errorf("failed to delete credential: %w", err)
		}
		return nil
	}
	if err := s.client.HSet(ctx, key, name, value).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + userID
}
