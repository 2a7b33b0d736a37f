package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
)

type ArtifactUsecase interface {
	ListArtifacts(ctx context.Context, jobID string) ([]*entity.Artifact, error)
	DeleteArtifacts(ctx context.Context, jobID string) error
}

// FileRemover deletes a stored artifact from disk.
type FileRemover interface {
	Remove(path string) error
}

type ArtifactService struct {
	repo   repository.ArtifactRepository
	files  FileRemover
	logger *slog.Logger
}

func NewArtifactService(repo repository.ArtifactRepository, files FileRemover, logger *slog.Logger) *ArtifactService {
	return &ArtifactService{repo: repo, files: files, logger: logger}
}

var _ ArtifactUsecase = (*ArtifactService)(nil)

func (s *ArtifactService) ListArtifacts(ctx context.Context, jobID string) ([]*entity.Artifact, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID is required")
	}
	artifacts, err := s.repo.ListByJobID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list artifacts for job %s: %w", jobID, err)
	}
	return artifacts, nil
}

// DeleteArtifacts removes the files of a job from disk, then drops the index.
// A file that cannot be removed is logged and left behind.
func (s *ArtifactService) DeleteArtifacts(ctx context.Context, jobID string) error {
	artifacts, err := s.ListArtifacts(ctx, jobID)
	if err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := s.files.Remove(a.Path); err != nil {
			s.logger.Warn("failed to remove artifact file", "job_id", jobID, "path", a.Path, "err", err)
		}
	}
	if err := s.repo.DeleteByJobID(ctx, jobID); err != nil {
		return fmt.Errorf("delete artifacts for job %s: %w", jobID, err)
	}
	return nil
}
