package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
	"text2model/internal/infrastructure/validator"
	"text2model/internal/resilience"
)

// StageAdapters wrap the external collaborators of the pipeline. Every call
// goes through the retry policy; the generation adapters additionally fall
// back to a secondary service once retries are exhausted.
type StageAdapters struct {
	enhancer repository.PromptEnhancer
	services repository.GenerationService
	policy   resilience.Policy
	logger   *slog.Logger
}

func NewStageAdapters(
	enhancer repository.PromptEnhancer,
	services repository.GenerationService,
	policy resilience.Policy,
	logger *slog.Logger,
) *StageAdapters {
	if policy.Logger == nil {
		policy.Logger = logger
	}
	return &StageAdapters{
		enhancer: enhancer,
		services: services,
		policy:   policy,
		logger:   logger,
	}
}

// EnhancePrompt never fails: when the language model is unavailable the
// original prompt is used as is.
func (s *StageAdapters) EnhancePrompt(ctx context.Context, prompt, correlationID string) string {
	enhanced, err := resilience.Do(ctx, s.policy, "enhance_prompt", func(ctx context.Context) (string, error) {
		return s.enhancer.Enhance(ctx, prompt, correlationID)
	})
	if err != nil {
		metrics.IncFallback(string(entity.StagePromptEnhancement), "original_prompt")
		s.logger.Warn(fmt.Sprintf("[%s] Prompt enhancement failed, using original prompt", correlationID),
			"correlation_id", correlationID, "err", err)
		return prompt
	}

	if notes := validator.AnalyzePrompt(enhanced); !notes.Passed {
		s.logger.Debug("enhanced prompt analysis", "correlation_id", correlationID, "notes", notes.Notes)
	}
	return enhanced
}

// TextToImage returns the base64 image produced for prompt.
func (s *StageAdapters) TextToImage(ctx context.Context, prompt, correlationID string, ids entity.ServiceIDs) (string, error) {
	call := func(serviceID string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			s.logger.Info(fmt.Sprintf("[%s] Calling Text-to-Image app with prompt: '%s'", correlationID, prompt),
				"correlation_id", correlationID, "service", serviceID)
			start := time.Now()

			metrics.IncServiceRequest(string(entity.StageTextToImage))
			result, err := s.services.Call(ctx, serviceID, map[string]any{"prompt": prompt})
			if err != nil {
				return "", err
			}
			image, err := validator.ImagePayload(result)
			if err != nil {
				return "", err
			}

			s.logger.Info(fmt.Sprintf("[%s] Text-to-Image generation completed in %.2f seconds", correlationID, time.Since(start).Seconds()),
				"correlation_id", correlationID)
			return image, nil
		}
	}
	return withSecondary(ctx, s, entity.StageTextToImage, correlationID, ids.TextToImage, ids.TextToImageSecondary, call)
}

// ImageToModel sends the image to the image-to-3D service.
func (s *StageAdapters) ImageToModel(ctx context.Context, image, correlationID string, ids entity.ServiceIDs) (map[string]any, error) {
	call := func(serviceID string) func(context.Context) (map[string]any, error) {
		return func(ctx context.Context) (map[string]any, error) {
			s.logger.Info(fmt.Sprintf("[%s] Calling Image-to-3D app with image", correlationID),
				"correlation_id", correlationID, "service", serviceID)
			start := time.Now()

			metrics.IncServiceRequest(string(entity.StageImageTo3D))
			result, err := s.services.Call(ctx, serviceID, map[string]any{"image": image})
			if err != nil {
				return nil, err
			}
			if err := validator.ValidateModelResult(result); err != nil {
				return nil, err
			}

			s.logger.Info(fmt.Sprintf("[%s] Image-to-3D generation completed in %.2f seconds", correlationID, time.Since(start).Seconds()),
				"correlation_id", correlationID)
			return result, nil
		}
	}
	return withSecondary(ctx, s, entity.StageImageTo3D, correlationID, ids.ImageToModel, ids.ImageToModelSecondary, call)
}

// withSecondary retries the primary service and, when a secondary is
// configured, makes a single attempt against it. If that attempt fails too the
// primary's last error is returned.
func withSecondary[T any](
	ctx context.Context,
	s *StageAdapters,
	stage entity.Stage,
	correlationID, primary, secondary string,
	call func(serviceID string) func(context.Context) (T, error),
) (T, error) {
	res, err := resilience.Do(ctx, s.policy, string(stage), call(primary))
	if err == nil || secondary == "" || secondary == primary || ctx.Err() != nil {
		return res, err
	}

	s.logger.Warn(fmt.Sprintf("[%s] Primary service exhausted for %s, trying secondary", correlationID, stage),
		"correlation_id", correlationID, "primary", primary, "secondary", secondary, "err", err)
	metrics.IncFallback(string(stage), "secondary_service")

	fallback, fbErr := call(secondary)(ctx)
	if fbErr != nil {
		s.logger.Error(fmt.Sprintf("[%s] Secondary service failed for %s", correlationID, stage),
			"correlation_id", correlationID, "secondary", secondary, "err", fbErr)
		return res, err
	}
	return fallback, nil
}
