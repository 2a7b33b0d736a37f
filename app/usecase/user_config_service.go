package usecase

import (
	"context"
	"fmt"
	"strings"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
)

type UserConfigUsecase interface {
	GetConfig(ctx context.Context, userID string) (*entity.UserConfig, error)
	PutConfig(ctx context.Context, cfg *entity.UserConfig) error
	DeleteConfig(ctx context.Context, userID string) error
}

type UserConfigService struct {
	store repository.UserConfigStore
}

func NewUserConfigService(store repository.UserConfigStore) *UserConfigService {
	return &UserConfigService{store: store}
}

var _ UserConfigUsecase = (*UserConfigService)(nil)

func (s *UserConfigService) GetConfig(ctx context.Context, userID string) (*entity.UserConfig, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, entity.ErrEmptyUserID
	}
	return s.store.Get(ctx, userID)
}

func (s *UserConfigService) PutConfig(ctx context.Context, cfg *entity.UserConfig) error {
	cfg.UserID = strings.TrimSpace(cfg.UserID)
	cfg.TextToImageService = strings.TrimSpace(cfg.TextToImageService)
	cfg.ImageToModelService = strings.TrimSpace(cfg.ImageToModelService)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.store.Put(ctx, cfg); err != nil {
		return fmt.Errorf("save config for user %s: %w", cfg.UserID, err)
	}
	return nil
}

func (s *UserConfigService) DeleteConfig(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return entity.ErrEmptyUserID
	}
	return s.store.Delete(ctx, userID)
}
