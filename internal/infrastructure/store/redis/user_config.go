package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

// UserConfigStore keeps per-user configuration as JSON values in Redis.
type UserConfigStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ repository.UserConfigStore = (*UserConfigStore)(nil)

type Option func(*UserConfigStore)

// WithTTL expires configurations that have not been written for ttl.
func WithTTL(ttl time.Duration) Option {
	return func(s *UserConfigStore) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) Option {
	return func(s *UserConfigStore) {
		s.prefix = prefix
	}
}

func New(address, password string, db int, opts ...Option) *UserConfigStore {
	return NewFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

func NewFromClient(client *backend.Client, opts ...Option) *UserConfigStore {
	s := &UserConfigStore{
		client: client,
		prefix: "text2model:user_config:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UserConfigStore) key(userID string) string {
	return s.prefix + userID
}

func (s *UserConfigStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *UserConfigStore) Close() error {
	return s.client.Close()
}

func (s *UserConfigStore) Get(ctx context.Context, userID string) (*entity.UserConfig, error) {
	metrics.IncDBOp("get")

	val, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, entity.ErrNotFound
		}
		metrics.IncError("redis_user_config", "get_error")
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	var cfg entity.UserConfig
	if err := json.Unmarshal(val, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user config: %w", err)
	}
	return &cfg, nil
}

func (s *UserConfigStore) Put(ctx context.Context, cfg *entity.UserConfig) error {
	metrics.IncDBOp("put")

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}
	if err := s.client.Set(ctx, s.key(cfg.UserID), data, s.ttl).Err(); err != nil {
		metrics.IncError("redis_user_config", "put_error")
		return fmt.Errorf("failed to save user config: %w", err)
	}
	return nil
}

func (s *UserConfigStore) Delete(ctx context.Context, userID string) error {
	metrics.IncDBOp("delete")

	n, err := s.client.Del(ctx, s.key(userID)).Result()
	if err != nil {
		metrics.IncError("redis_user_config", "delete_error")
		return fmt.Errorf("failed to delete user config: %w", err)
	}
	if n == 0 {
		return entity.ErrNotFound
	}
	return nil
}
