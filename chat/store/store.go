// Package store provides chat.Store implementations.
package store

import (
	"fmt"

	"github.com/sweetpotato0/tandem/chat"
	"github.com/sweetpotato0/tandem/config"
	"github.com/sweetpotato0/tandem/errors"
)

// Open returns the store named kind, configured from the environment.
func Open(kind string) (chat.Store, error) {
	var (
		s   chat.Store
		err error
	)
	switch kind {
	case "", config.StoreMemory:
		s = NewInMemoryStore()
	case config.StorePostgres:
		var pg *PostgresStore
		if pg, err = NewPostgresStore(PostgresConfigFromEnv()); err == nil {
			s = pg
		}
	case config.StoreMongo:
		var mg *MongoStore
		if mg, err = NewMongoStore(MongoConfigFromEnv()); err == nil {
			s = mg
		}
	case config.StoreRedis:
		var rd *RedisStore
		if rd, err = NewRedisStore(RedisConfigFromEnv()); err == nil {
			s = rd
		}
	default:
		err = fmt.Errorf("unknown store %q: %w", kind, errors.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
