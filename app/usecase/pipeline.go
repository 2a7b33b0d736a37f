package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
	"text2model/internal/infrastructure/validator"
)

const (
	imagePrefix = "text2img"
	modelPrefix = "model"
)

type PipelineUsecase interface {
	Process(ctx context.Context, req entity.GenerationRequest) *entity.ExecutionContext
	Execute(ctx context.Context, req entity.GenerationRequest) entity.ExecutionResult
}

var _ PipelineUsecase = (*Pipeline)(nil)

// Pipeline turns a prompt into a saved image and 3D model.
type Pipeline struct {
	stages      *StageAdapters
	store       repository.ArtifactStore
	userConfigs repository.UserConfigStore
	services    entity.ServiceIDs
	logger      *slog.Logger
}

// NewPipeline wires the stages to their storage. userConfigs may be nil, in
// which case every run uses services.
func NewPipeline(
	stages *StageAdapters,
	store repository.ArtifactStore,
	userConfigs repository.UserConfigStore,
	services entity.ServiceIDs,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		stages:      stages,
		store:       store,
		userConfigs: userConfigs,
		services:    services,
		logger:      logger,
	}
}

// Process runs every stage in order and stops at the first failure, which is
// recorded on the returned context. It never panics.
func (p *Pipeline) Process(ctx context.Context, req entity.GenerationRequest) (ec *entity.ExecutionContext) {
	ec = entity.NewExecutionContext(p.logger, req.Prompt, req.CorrelationID)

	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()

	stageStart := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ec.Fail(fmt.Errorf("unexpected failure: %v", r))
		}
		if ec.Failed() {
			metrics.ObserveStageDuration(string(ec.Stage), time.Since(stageStart))
		}
		p.finish(ec)
	}()

	ids := p.resolveServices(ctx, req.UserID, ec.CorrelationID)

	advance := func(next entity.Stage) {
		metrics.ObserveStageDuration(string(ec.Stage), time.Since(stageStart))
		stageStart = time.Now()
		ec.Advance(next)
	}

	advance(entity.StagePromptEnhancement)
	ec.EnhancedPrompt = p.stages.EnhancePrompt(ctx, ec.UserPrompt, ec.CorrelationID)

	advance(entity.StageTextToImage)
	image, err := p.stages.TextToImage(ctx, ec.EnhancedPrompt, ec.CorrelationID, ids)
	if err != nil {
		ec.Fail(err)
		return ec
	}

	advance(entity.StageImageSaving)
	imagePath, imageFilename, err := p.store.SaveImage(ctx, image, ec.EnhancedPrompt, imagePrefix)
	if err != nil {
		ec.Fail(fmt.Errorf("save image: %w", err))
		return ec
	}
	ec.ImagePath, ec.ImageFilename = imagePath, imageFilename

	advance(entity.StageImageTo3D)
	model, err := p.stages.ImageToModel(ctx, image, ec.CorrelationID, ids)
	if err != nil {
		ec.Fail(err)
		return ec
	}
	if notes := validator.AnalyzeModel(model); !notes.Passed {
		ec.Logger().Warn("model result analysis", "notes", notes.Notes)
	}

	advance(entity.StageModelSaving)
	modelPath, modelFilename, err := p.store.SaveModel(ctx, model, ec.EnhancedPrompt, ec.ImagePath, modelPrefix)
	if err != nil {
		ec.Fail(fmt.Errorf("save model: %w", err))
		return ec
	}
	ec.ModelPath, ec.ModelFilename = modelPath, modelFilename

	advance(entity.StageComplete)
	return ec
}

// Execute runs Process and formats the outcome for the caller.
func (p *Pipeline) Execute(ctx context.Context, req entity.GenerationRequest) entity.ExecutionResult {
	return NewExecutionResult(p.Process(ctx, req))
}

// resolveServices takes one snapshot of the user's configuration for the run.
func (p *Pipeline) resolveServices(ctx context.Context, userID, correlationID string) entity.ServiceIDs {
	if p.userConfigs == nil || userID == "" {
		return p.services
	}
	cfg, err := p.userConfigs.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, entity.ErrNotFound) {
			p.logger.Warn("failed to load user config, using defaults",
				"correlation_id", correlationID, "user_id", userID, "err", err)
		}
		return p.services
	}
	return p.services.Apply(cfg)
}

func (p *Pipeline) finish(ec *entity.ExecutionContext) {
	metrics.ObserveRunDuration(ec.Elapsed())
	if ec.Failed() {
		metrics.IncRun("failed")
		metrics.IncStageFailure(string(ec.Stage))
		ec.Logger().Error(fmt.Sprintf("[%s] Pipeline execution failed: %s", ec.CorrelationID, ec.Err),
			"stage", ec.Stage, "err", ec.Err)
		return
	}
	metrics.IncRun("success")
	ec.Logger().Info(fmt.Sprintf("[%s] Pipeline execution completed successfully in %.2fs", ec.CorrelationID, ec.Elapsed().Seconds()))
}
