package repository

import (
	"context"

	"text2model/internal/domain/entity"
)

// PromptEnhancer expands a user prompt through a language model.
type PromptEnhancer interface {
	Enhance(ctx context.Context, prompt, correlationID string) (string, error)
}

// GenerationService calls an external generation app by service id.
type GenerationService interface {
	Call(ctx context.Context, serviceID string, payload map[string]any) (map[string]any, error)
}

// UserConfigStore keeps per-user configuration. Get returns entity.ErrNotFound
// for unknown users.
type UserConfigStore interface {
	Get(ctx context.Context, userID string) (*entity.UserConfig, error)
	Put(ctx context.Context, cfg *entity.UserConfig) error
	Delete(ctx context.Context, userID string) error
}
