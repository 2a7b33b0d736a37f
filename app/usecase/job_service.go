package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
)

type JobUsecase interface {
	CreateJob(ctx context.Context, req entity.GenerationRequest) (*entity.Job, error)
	GetJob(ctx context.Context, id string) (*entity.Job, error)
	ListJobs(ctx context.Context) ([]*entity.Job, error)
	ListJobsByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

var _ JobUsecase = (*JobService)(nil)

type JobService struct {
	jobsRepo  repository.JobRepository
	artifacts ArtifactUsecase
}

func NewJobService(jr repository.JobRepository, artifacts ArtifactUsecase) *JobService {
	return &JobService{
		jobsRepo:  jr,
		artifacts: artifacts,
	}
}

// ValidateRequest trims the prompt and rejects an empty one.
func ValidateRequest(req *entity.GenerationRequest) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return entity.ErrEmptyPrompt
	}
	return nil
}

func (u *JobService) CreateJob(ctx context.Context, req entity.GenerationRequest) (*entity.Job, error) {
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}
	job := entity.NewJob(req.Prompt, req.UserID)

	if err := u.jobsRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return job, nil
}

func (u *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	job, err := u.jobsRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobNotFoundError(id)
	}
	return job, nil
}

func (u *JobService) ListJobs(ctx context.Context) ([]*entity.Job, error) {
	return u.jobsRepo.List(ctx)
}

func (u *JobService) ListJobsByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error) {
	return u.jobsRepo.ListByStatus(ctx, status)
}

// DeleteJob removes the job together with its files. A running job cannot be
// deleted because the worker still owns it.
func (u *JobService) DeleteJob(ctx context.Context, jobID string) error {
	job, err := u.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == entity.JobStatusRunning {
		return fmt.Errorf("job %s: %w", jobID, ErrJobRunning)
	}

	if err := u.artifacts.DeleteArtifacts(ctx, jobID); err != nil {
		return fmt.Errorf("delete artifacts: %w", err)
	}
	if err := u.jobsRepo.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

var ErrJobRunning = errors.New("job is running")

func jobNotFoundError(id string) error {
	return fmt.Errorf("job %s: %w", id, entity.ErrNotFound)
}
