package usecase_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"text2model/app/usecase"
	"text2model/internal/domain/entity"
	"text2model/internal/infrastructure/store/filesystem"
	"text2model/internal/infrastructure/store/memory"
	"text2model/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type workerFixture struct {
	jobs      *memory.JobRepo
	artifacts *memory.ArtifactRepo
	files     *filesystem.ArtifactStore
	services  *fakeServices
	worker    *usecase.GenerationWorker
}

func newWorkerFixture(t *testing.T, cfg usecase.WorkerConfig) *workerFixture {
	t.Helper()
	files, err := filesystem.NewArtifactStore(t.TempDir())
	require.NoError(t, err)

	f := &workerFixture{
		jobs:      memory.NewJobRepo(),
		artifacts: memory.NewArtifactRepo(),
		files:     files,
		services:  newFakeServices(),
	}
	p := newPipeline(t, pipelineDeps{services: f.services, store: files})
	f.worker = usecase.NewGenerationWorker(f.jobs, f.artifacts, p, cfg, logging.NewNop())
	return f
}

func TestGenerationWorker_RunOnce(t *testing.T) {
	f := newWorkerFixture(t, usecase.WorkerConfig{Concurrency: 2})
	ctx := context.Background()

	ok := entity.NewJob("a red chair", "")
	require.NoError(t, f.jobs.Create(ctx, ok))

	require.NoError(t, f.worker.RunOnce(ctx))

	job, err := f.jobs.GetByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	assert.True(t, job.Result.Success)
	assert.Equal(t, ok.ID, job.Result.CorrelationID)
	assert.Equal(t, ok.ID, job.CorrelationID)

	artifacts, err := f.artifacts.ListByJobID(ctx, ok.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, entity.ArtifactImage, artifacts[0].Kind)
	assert.Equal(t, job.Result.ImagePath, artifacts[0].Path)
	assert.Equal(t, entity.ArtifactModel, artifacts[1].Kind)
	assert.Equal(t, job.Result.ModelPath, artifacts[1].Path)
}

func TestGenerationWorker_FailedJobKeepsPartialArtifacts(t *testing.T) {
	f := newWorkerFixture(t, usecase.WorkerConfig{})
	f.services.set(modelSvc, func(map[string]any) (map[string]any, error) {
		return nil, errors.New("gpu out of memory")
	})
	ctx := context.Background()

	job := entity.NewJob("a red chair", "")
	require.NoError(t, f.jobs.Create(ctx, job))
	require.NoError(t, f.worker.RunOnce(ctx))

	stored, err := f.jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.JobStatusFailed, stored.Status)
	assert.Equal(t, entity.StageImageTo3D, stored.Result.Stage)
	assert.Equal(t, "Error: gpu out of memory", stored.Result.Message)

	artifacts, err := f.artifacts.ListByJobID(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.Equal(t, entity.ArtifactImage, artifacts[0].Kind)
}

func TestGenerationWorker_ProcessesAllPendingJobs(t *testing.T) {
	f := newWorkerFixture(t, usecase.WorkerConfig{Concurrency: 3})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, f.jobs.Create(ctx, entity.NewJob("a red chair", "")))
	}
	done, err := f.jobs.ListByStatus(ctx, entity.JobStatusCompleted)
	require.NoError(t, err)
	require.Empty(t, done)

	require.NoError(t, f.worker.RunOnce(ctx))

	n, err := f.jobs.CountByStatus(ctx, entity.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	n, err = f.jobs.CountByStatus(ctx, entity.JobStatusPending)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 7, f.services.count(imageSvc))
}

func TestGenerationWorker_StartStop(t *testing.T) {
	f := newWorkerFixture(t, usecase.WorkerConfig{PollInterval: 10 * time.Millisecond})
	ctx := context.Background()

	job := entity.NewJob("a red chair", "")
	require.NoError(t, f.jobs.Create(ctx, job))

	f.worker.Start(ctx)
	require.Eventually(t, func() bool {
		stored, err := f.jobs.GetByID(ctx, job.ID)
		return err == nil && stored.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	f.worker.Stop()
	f.worker.Stop()
}

func TestGenerationWorker_StopsOnContextCancel(t *testing.T) {
	f := newWorkerFixture(t, usecase.WorkerConfig{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	f.worker.Start(ctx)
	cancel()
	f.worker.Stop()
}

func TestJobService(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, usecase.WorkerConfig{})
	artifacts := usecase.NewArtifactService(f.artifacts, f.files, logging.NewNop())
	svc := usecase.NewJobService(f.jobs, artifacts)

	_, err := svc.CreateJob(ctx, entity.GenerationRequest{Prompt: "   "})
	assert.ErrorIs(t, err, entity.ErrEmptyPrompt)

	job, err := svc.CreateJob(ctx, entity.GenerationRequest{Prompt: "  a red chair ", UserID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "a red chair", job.Prompt)
	assert.Equal(t, entity.JobStatusPending, job.Status)

	_, err = svc.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, f.worker.RunOnce(ctx))

	done, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Equal(t, entity.JobStatusCompleted, done.Status)

	list, err := svc.ListJobsByStatus(ctx, entity.JobStatusCompleted)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	files, err := artifacts.ListArtifacts(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	require.NoError(t, svc.DeleteJob(ctx, job.ID))
	for _, a := range files {
		_, statErr := os.Stat(a.Path)
		assert.True(t, os.IsNotExist(statErr), a.Path)
	}
	_, err = svc.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteJob(ctx, job.ID), entity.ErrNotFound)
}

func TestJobService_RefusesToDeleteRunningJob(t *testing.T) {
	ctx := context.Background()
	jobs := memory.NewJobRepo()
	svc := usecase.NewJobService(jobs, usecase.NewArtifactService(memory.NewArtifactRepo(), nil, logging.NewNop()))

	job, err := svc.CreateJob(ctx, entity.GenerationRequest{Prompt: "a red chair"})
	require.NoError(t, err)
	require.NoError(t, jobs.UpdateStatus(ctx, job.ID, entity.JobStatusRunning))

	assert.ErrorIs(t, svc.DeleteJob(ctx, job.ID), usecase.ErrJobRunning)
}

func TestUserConfigService(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewUserConfigService(memory.NewUserConfigStore())

	assert.ErrorIs(t, svc.PutConfig(ctx, &entity.UserConfig{UserID: " "}), entity.ErrEmptyUserID)
	_, err := svc.GetConfig(ctx, "  ")
	assert.ErrorIs(t, err, entity.ErrEmptyUserID)
	assert.ErrorIs(t, svc.DeleteConfig(ctx, ""), entity.ErrEmptyUserID)

	require.NoError(t, svc.PutConfig(ctx, &entity.UserConfig{UserID: "alice", TextToImageService: " svc-a "}))
	cfg, err := svc.GetConfig(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "svc-a", cfg.TextToImageService)

	_, err = svc.GetConfig(ctx, "bob")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, svc.DeleteConfig(ctx, "alice"))
	_, err = svc.GetConfig(ctx, "alice")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestUserConfigService_RejectsServiceIDsOutsideURLLabel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewUserConfigStore()
	svc := usecase.NewUserConfigService(store)

	for _, cfg := range []*entity.UserConfig{
		{UserID: "mallory", TextToImageService: "attacker.host/x?"},
		{UserID: "mallory", ImageToModelService: "127.0.0.1:9000"},
		{UserID: "mallory", TextToImageService: "ok-id", ImageToModelService: "a/b"},
	} {
		assert.ErrorIs(t, svc.PutConfig(ctx, cfg), entity.ErrInvalidServiceID)
	}

	_, err := store.Get(ctx, "mallory")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	require.NoError(t, svc.PutConfig(ctx, &entity.UserConfig{
		UserID:              "alice",
		TextToImageService:  "c25dcd829d134ea98f5ae4dd311d13bc",
		ImageToModelService: "69543f29-4d41-4afc-7f29-3d51591f11eb",
	}))
}
