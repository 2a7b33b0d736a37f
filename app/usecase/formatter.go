package usecase

import (
	"fmt"

	"text2model/internal/domain/entity"
)

const successFormat = "Successfully created 3D model from prompt!\n\n" +
	"Original Prompt: '%s'\n\n" +
	"Enhanced Prompt: '%s'\n\n" +
	"Image saved to: %s\n\n" +
	"3D Model saved to: %s\n\n" +
	"Processing time: %.2f seconds"

// FormatMessage renders a finished context for the user.
func FormatMessage(ec *entity.ExecutionContext) string {
	return formatMessage(ec, ec.Elapsed().Seconds())
}

func formatMessage(ec *entity.ExecutionContext, elapsed float64) string {
	if ec.Err != nil {
		return "Error: " + ec.Err.Error()
	}
	return fmt.Sprintf(successFormat,
		ec.UserPrompt,
		ec.EnhancedPrompt,
		ec.ImagePath,
		ec.ModelPath,
		elapsed,
	)
}

// NewExecutionResult reads the elapsed time once so the message and
// ElapsedSeconds agree.
func NewExecutionResult(ec *entity.ExecutionContext) entity.ExecutionResult {
	elapsed := ec.Elapsed().Seconds()
	return entity.ExecutionResult{
		Success:        ec.Completed(),
		Message:        formatMessage(ec, elapsed),
		CorrelationID:  ec.CorrelationID,
		ElapsedSeconds: elapsed,
		Stage:          ec.Stage,
		EnhancedPrompt: ec.EnhancedPrompt,
		ImagePath:      ec.ImagePath,
		ModelPath:      ec.ModelPath,
	}
}
