package repository

import (
	"context"

	"text2model/internal/domain/entity"
)

// ArtifactRepository indexes the files produced by jobs.
type ArtifactRepository interface {
	SaveArtifacts(ctx context.Context, artifacts []*entity.Artifact) error
	ListByJobID(ctx context.Context, jobID string) ([]*entity.Artifact, error)
	DeleteByJobID(ctx context.Context, jobID string) error
}

// ArtifactStore persists generated images and models.
type ArtifactStore interface {
	// SaveImage decodes base64 image data and writes it with a metadata sidecar.
	SaveImage(ctx context.Context, data, prompt, prefix string) (path, filename string, err error)
	// SaveModel writes model data with its generation metadata.
	SaveModel(ctx context.Context, data map[string]any, prompt, sourceImage, prefix string) (path, filename string, err error)
}
