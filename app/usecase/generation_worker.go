package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

type WorkerConfig struct {
	PollInterval time.Duration
	JobTimeout   time.Duration
	Concurrency  int
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 10 * time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// GenerationWorker polls for pending jobs and runs them through the pipeline.
type GenerationWorker struct {
	jobsRepo     repository.JobRepository
	artifactRepo repository.ArtifactRepository
	pipeline     PipelineUsecase
	logger       *slog.Logger
	cfg          WorkerConfig

	// control
	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewGenerationWorker(
	jr repository.JobRepository,
	ar repository.ArtifactRepository,
	pipeline PipelineUsecase,
	cfg WorkerConfig,
	logger *slog.Logger,
) *GenerationWorker {
	return &GenerationWorker{
		jobsRepo:     jr,
		artifactRepo: ar,
		pipeline:     pipeline,
		logger:       logger,
		cfg:          cfg.withDefaults(),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}
}

func (w *GenerationWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.stopped)
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		w.logger.Info("GenerationWorker started", "interval", w.cfg.PollInterval, "concurrency", w.cfg.Concurrency)

		if err := w.RunOnce(ctx); err != nil {
			w.logger.Warn("initial runOnce failed", "err", err)
		}

		for {
			select {
			case <-ctx.Done():
				w.logger.Info("GenerationWorker context canceled")
				return
			case <-w.stop:
				w.logger.Info("GenerationWorker stopped by Stop()")
				return
			case <-ticker.C:
				if err := w.RunOnce(ctx); err != nil {
					w.logger.Warn("runOnce failed", "err", err)
				}
			}
		}
	}()
}

// Stop waits for the polling loop and any jobs it started to finish.
func (w *GenerationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.stopped
	w.logger.Info("GenerationWorker fully stopped")
}

// RunOnce processes every pending job, at most cfg.Concurrency at a time, and
// returns when all of them are done.
func (w *GenerationWorker) RunOnce(ctx context.Context) error {
	jobs, err := w.jobsRepo.ListByStatus(ctx, entity.JobStatusPending)
	if err != nil {
		return fmt.Errorf("list pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	w.logger.Debug("found pending jobs", "count", len(jobs))

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)

	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		if err := w.jobsRepo.UpdateStatus(ctx, job.ID, entity.JobStatusRunning); err != nil {
			w.logger.Warn("failed to set job running; skip", "job_id", job.ID, "err", err)
			continue
		}
		metrics.IncJobStatusChange(string(entity.JobStatusPending), string(entity.JobStatusRunning))
		job.UpdateStatus(entity.JobStatusRunning)

		g.Go(func() error {
			procCtx, cancel := context.WithTimeout(ctx, w.cfg.JobTimeout)
			defer cancel()
			if err := w.processJob(procCtx, job); err != nil {
				w.logger.Error("processJob failed", "job_id", job.ID, "err", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// processJob runs the pipeline for one job and persists the outcome. Results
// are written even if ctx was canceled mid-run so the job does not stay running.
func (w *GenerationWorker) processJob(ctx context.Context, job *entity.Job) error {
	startTime := time.Now()
	w.logger.Info("start processing job", "job_id", job.ID, "correlation_id", job.ID)

	ec := w.pipeline.Process(ctx, job.Request())
	result := NewExecutionResult(ec)

	persistCtx := context.WithoutCancel(ctx)

	if artifacts := entity.ArtifactsFromContext(job.ID, ec); len(artifacts) > 0 {
		if err := w.artifactRepo.SaveArtifacts(persistCtx, artifacts); err != nil {
			w.logger.Error("index artifacts failed", "job_id", job.ID, "err", err)
		}
	}

	from := job.Status
	job.Finish(result)
	if err := w.jobsRepo.Update(persistCtx, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	metrics.IncJobStatusChange(string(from), string(job.Status))

	w.logger.Info("job processed",
		"job_id", job.ID,
		"status", job.Status,
		"stage", result.Stage,
		"duration", time.Since(startTime),
	)
	return nil
}
