package memory

import (
	"context"
	"sync"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
)

// UserConfigStore is safe for concurrent use. Readers get a copy taken under
// the read lock, so a run keeps the configuration it started with.
type UserConfigStore struct {
	mu      sync.RWMutex
	configs map[string]entity.UserConfig
}

var _ repository.UserConfigStore = (*UserConfigStore)(nil)

func NewUserConfigStore() *UserConfigStore {
	return &UserConfigStore{configs: make(map[string]entity.UserConfig)}
}

func (s *UserConfigStore) Get(ctx context.Context, userID string) (*entity.UserConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[userID]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return &cfg, nil
}

func (s *UserConfigStore) Put(ctx context.Context, cfg *entity.UserConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.UserID] = *cfg
	return nil
}

func (s *UserConfigStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[userID]; !ok {
		return entity.ErrNotFound
	}
	delete(s.configs, userID)
	return nil
}
