package entity

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type Stage string

const (
	StageInitialized       Stage = "initialized"
	StagePromptEnhancement Stage = "prompt_enhancement"
	StageTextToImage       Stage = "text_to_image"
	StageImageSaving       Stage = "image_saving"
	StageImageTo3D         Stage = "image_to_3d"
	StageModelSaving       Stage = "model_saving"
	StageComplete          Stage = "complete"
)

var stageOrder = map[Stage]int{
	StageInitialized:       0,
	StagePromptEnhancement: 1,
	StageTextToImage:       2,
	StageImageSaving:       3,
	StageImageTo3D:         4,
	StageModelSaving:       5,
	StageComplete:          6,
}

// Rank returns the position of the stage in pipeline order, -1 for unknown stages.
func (s Stage) Rank() int {
	if r, ok := stageOrder[s]; ok {
		return r
	}
	return -1
}

// ExecutionContext tracks one pipeline run. It is owned by the pipeline while the
// run is in progress and handed to the caller afterwards.
type ExecutionContext struct {
	CorrelationID  string
	UserPrompt     string
	EnhancedPrompt string
	ImagePath      string
	ImageFilename  string
	ModelPath      string
	ModelFilename  string
	Stage          Stage
	StartTime      time.Time
	Err            error

	history []Stage
	logger  *slog.Logger
}

// NewExecutionContext creates a context in the initialized stage. A correlation id
// is generated when correlationID is empty.
func NewExecutionContext(logger *slog.Logger, prompt, correlationID string) *ExecutionContext {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}
	ec := &ExecutionContext{
		CorrelationID: correlationID,
		UserPrompt:    prompt,
		Stage:         StageInitialized,
		StartTime:     time.Now(),
		history:       []Stage{StageInitialized},
		logger:        logger.With("correlation_id", correlationID),
	}
	ec.logger.Info(fmt.Sprintf("[%s] Created execution context for prompt: '%s'", correlationID, prompt))
	return ec
}

// Advance moves the context to stage. Ordering is the caller's responsibility.
func (c *ExecutionContext) Advance(stage Stage) {
	c.Stage = stage
	c.history = append(c.history, stage)
	c.logger.Info(fmt.Sprintf("[%s] Execution stage: %s", c.CorrelationID, stage), "stage", stage)
}

// Fail records err against the current stage.
func (c *ExecutionContext) Fail(err error) {
	if err == nil {
		return
	}
	c.Err = err
	c.logger.Error(fmt.Sprintf("[%s] Error in stage '%s': %s", c.CorrelationID, c.Stage, err.Error()),
		"stage", c.Stage, "err", err)
}

func (c *ExecutionContext) Failed() bool {
	return c.Err != nil
}

func (c *ExecutionContext) Completed() bool {
	return c.Err == nil && c.Stage == StageComplete
}

func (c *ExecutionContext) Elapsed() time.Duration {
	return time.Since(c.StartTime)
}

// History returns the stages the context went through, in order.
func (c *ExecutionContext) History() []Stage {
	out := make([]Stage, len(c.history))
	copy(out, c.history)
	return out
}

func (c *ExecutionContext) Logger() *slog.Logger {
	return c.logger
}

// Summary returns a snapshot of the context for reporting. Unset optional fields
// and a nil error are omitted.
func (c *ExecutionContext) Summary() map[string]any {
	summary := map[string]any{
		"correlation_id": c.CorrelationID,
		"user_prompt":    c.UserPrompt,
		"stage":          string(c.Stage),
		"execution_time": fmt.Sprintf("%.2fs", c.Elapsed().Seconds()),
	}
	optional := map[string]string{
		"enhanced_prompt": c.EnhancedPrompt,
		"image_path":      c.ImagePath,
		"image_filename":  c.ImageFilename,
		"model_path":      c.ModelPath,
		"model_filename":  c.ModelFilename,
	}
	for k, v := range optional {
		if v != "" {
			summary[k] = v
		}
	}
	if c.Err != nil {
		summary["error"] = c.Err.Error()
	}
	return summary
}
