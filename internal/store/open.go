package store

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/internal/emit"
)

// Config selects the stores a build writes to. Empty settings disable a
// store.
type Config struct {
	Driver string
	DSN    string
	Redis  RedisConfig
}

// Stores holds the stores opened from a Config
type Stores struct {
	SQL   *SQLStore
	Redis *RedisStore
}

// Open connects every configured store. The SQL table is migrated before
// Open returns.
func Open(ctx context.Context, config Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{}

	if config.Driver != "" {
		sqlStore, err := OpenSQL(ctx, config.Driver, config.DSN, logger)
		if err != nil {
			return nil, err
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			sqlStore.Close()
			return nil, err
		}
		s.SQL = sqlStore
	}

	if config.Redis.Addr != "" {
		redisStore, err := NewRedisStore(config.Redis, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Redis = redisStore
	}
	return s, nil
}

// Services returns the opened stores as emit services
func (s *Stores) Services() []emit.Service {
	var services []emit.Service
	if s.SQL != nil {
		services = append(services, s.SQL)
	}
	if s.Redis != nil {
		services = append(services, s.Redis)
	}
	return services
}

// Close closes every opened store
func (s *Stores) Close() error {
	var errs []error
	if s.SQL != nil {
		errs = append(errs, s.SQL.Close())
	}
	if s.Redis != nil {
		errs = append(errs, s.Redis.Close())
	}
	return stderrors.Join(errs...)
}
