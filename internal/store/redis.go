package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/conduit-lang/docmeta/compiler/analyzer"
	"github.com/conduit-lang/docmeta/internal/emit"
	"github.com/conduit-lang/docmeta/internal/logging"
	"github.com/conduit-lang/docmeta/runtime/metadata"
)

// DefaultRedisPrefix prefixes every key the Redis store writes
const DefaultRedisPrefix = "docmeta:"

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	// Addr is the Redis server address (host:port)
	Addr string
	// Password is the Redis password (optional)
	Password string
	// DB is the Redis database number
	DB int
	// Prefix is prepended to every key
	Prefix string
}

// RedisStore keeps one hash per unit under prefix+kind+":"+target, a set of
// all stored keys under prefix+"targets" and a set per document.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisStore connects to Redis and pings it
func NewRedisStore(config RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis store at %s: %w", config.Addr, err)
	}
	return NewRedisStoreWithClient(client, config.Prefix, logger), nil
}

// NewRedisStoreWithClient creates a store on an existing client
func NewRedisStoreWithClient(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, logger: logging.OrNop(logger)}
}

func (s *RedisStore) unitKey(key string) string { return s.prefix + key }
func (s *RedisStore) targetsKey() string        { return s.prefix + "targets" }
func (s *RedisStore) documentKey(document string) string {
	return s.prefix + "document:" + document
}

// Emit stores a single unit
func (s *RedisStore) Emit(ctx context.Context, unit analyzer.Unit) error {
	e := emit.Encode(unit)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return s.write(ctx, pipe, e)
	})
	if err != nil {
		return fmt.Errorf("store unit %s: %w", e.Key(), err)
	}
	return nil
}

// EmitDocument removes the units previously stored for document, then
// stores units, in a single MULTI/EXEC transaction.
func (s *RedisStore) EmitDocument(ctx context.Context, document string, units []analyzer.Unit) error {
	stale, err := s.client.SMembers(ctx, s.documentKey(document)).Result()
	if err != nil {
		return fmt.Errorf("list units of %s: %w", document, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range stale {
			pipe.Del(ctx, s.unitKey(key))
			pipe.SRem(ctx, s.targetsKey(), key)
		}
		pipe.Del(ctx, s.documentKey(document))

		for _, u := range units {
			if err := s.write(ctx, pipe, emit.Encode(u)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store units of %s: %w", document, err)
	}

	s.logger.Debug("units stored",
		zap.String("file", document),
		zap.Int("units", len(units)),
		zap.Int("replaced", len(stale)))
	return nil
}

// Remove deletes every unit of a deleted document
func (s *RedisStore) Remove(ctx context.Context, document string) error {
	return s.EmitDocument(ctx, document, nil)
}

func (s *RedisStore) write(ctx context.Context, pipe redis.Pipeliner, e metadata.Entry) error {
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return fmt.Errorf("encode fields of %s: %w", e.Key(), err)
	}
	overrides, err := json.Marshal(nonNil(e.Overrides))
	if err != nil {
		return fmt.Errorf("encode overrides of %s: %w", e.Key(), err)
	}

	key := e.Key()
	pipe.HSet(ctx, s.unitKey(key),
		"kind", e.Kind,
		"target", e.Target,
		"parent", e.Parent,
		"document", e.Document,
		"line", e.Line,
		"fields", string(fields),
		"overrides", string(overrides))
	pipe.SAdd(ctx, s.targetsKey(), key)
	pipe.SAdd(ctx, s.documentKey(e.Document), key)
	return nil
}

// Lookup loads the unit stored under a registry key (see metadata.EntryKey)
func (s *RedisStore) Lookup(ctx context.Context, key string) (*metadata.Entry, error) {
	values, err := s.client.HGetAll(ctx, s.unitKey(key)).Result()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("lookup %s: %w", key, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	e := metadata.Entry{
		Kind:     values["kind"],
		Target:   values["target"],
		Parent:   values["parent"],
		Document: values["document"],
	}
	if line, err := strconv.Atoi(values["line"]); err == nil {
		e.Line = line
	}
	if err := json.Unmarshal([]byte(values["fields"]), &e.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(values["overrides"]), &e.Overrides); err != nil {
		return nil, fmt.Errorf("decode overrides of %s: %w", key, err)
	}
	if len(e.Overrides) == 0 {
		e.Overrides = nil
	}
	return &e, nil
}

// Targets returns every stored key, sorted
func (s *RedisStore) Targets(ctx context.Context) ([]string, error) {
	keys, err := s.client.SMembers(ctx, s.targetsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
