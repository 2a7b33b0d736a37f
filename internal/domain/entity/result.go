package entity

// ExecutionResult is what callers of the pipeline receive.
type ExecutionResult struct {
	Success        bool    `json:"success" bson:"success"`
	Message        string  `json:"message" bson:"message"`
	CorrelationID  string  `json:"correlation_id" bson:"correlation_id"`
	ElapsedSeconds float64 `json:"elapsed_seconds" bson:"elapsed_seconds"`
	Stage          Stage   `json:"stage" bson:"stage"`
	EnhancedPrompt string  `json:"enhanced_prompt,omitempty" bson:"enhanced_prompt,omitempty"`
	ImagePath      string  `json:"image_path,omitempty" bson:"image_path,omitempty"`
	ModelPath      string  `json:"model_path,omitempty" bson:"model_path,omitempty"`
}

// GenerationRequest is a single prompt submitted to the pipeline.
type GenerationRequest struct {
	Prompt        string `json:"prompt"`
	UserID        string `json:"user_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
