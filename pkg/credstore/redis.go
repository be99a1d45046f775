package credstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// RedisStore is a Store backed by Redis, for clients that share one session
// across multiple processes (desktop app plus background agent). Operations
// run with a short timeout and fail soft: Redis unavailability degrades to
// missing credentials, never errors.
type RedisStore struct {
	client    *redis.Client
	namespace string
	timeout   time.Duration
	log       *slog.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisNamespace sets the key prefix. Defaults to "authkit".
func WithRedisNamespace(ns string) RedisOption {
	return func(s *RedisStore) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithRedisTimeout sets the per-operation timeout. Defaults to 2s.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRedisLogger sets the logger used for storage failure diagnostics.
func WithRedisLogger(log *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewRedisStore creates a Redis-backed store using the given client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		namespace: "authkit",
		timeout:   2 * time.Second,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) credKey(kind Kind) string {
	return s.namespace + ":cred:" + string(kind)
}

func (s *RedisStore) profileKey() string {
	return s.namespace + ":profile"
}

func (s *RedisStore) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *RedisStore) Save(kind Kind, value string) {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Set(ctx, s.credKey(kind), value, 0).Err(); err != nil {
		s.log.Debug("credstore: redis set failed", logger.Error(err))
	}
}

func (s *RedisStore) Read(kind Kind) (string, bool) {
	ctx, cancel := s.opContext()
	defer cancel()
	v, err := s.client.Get(ctx, s.credKey(kind)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("credstore: redis get failed", logger.Error(err))
		}
		return "", false
	}
	return v, true
}

func (s *RedisStore) SaveProfile(raw []byte) {
	ctx, cancel := s.opContext()
	defer cancel()
	if err := s.client.Set(ctx, s.profileKey(), raw, 0).Err(); err != nil {
		s.log.Debug("credstore: redis profile set failed", logger.Error(err))
	}
}

func (s *RedisStore) Profile() ([]byte, bool) {
	ctx, cancel := s.opContext()
	defer cancel()
	v, err := s.client.Get(ctx, s.profileKey()).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("credstore: redis profile get failed", logger.Error(err))
		}
		return nil, false
	}
	return v, true
}

func (s *RedisStore) HasProfile() bool {
	_, ok := s.Profile()
	return ok
}

// Clear deletes all keys in one command so no concurrent reader observes a
// partially-cleared state.
func (s *RedisStore) Clear() {
	ctx, cancel := s.opContext()
	defer cancel()
	keys := []string{
		s.credKey(KindAccess),
		s.credKey(KindRefresh),
		s.credKey(KindRemember),
		s.profileKey(),
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.log.Debug("credstore: redis clear failed", logger.Error(err))
	}
}
