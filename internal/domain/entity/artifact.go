package entity

import "time"

type ArtifactKind string

const (
	ArtifactImage ArtifactKind = "image"
	ArtifactModel ArtifactKind = "model"
)

// Artifact is an index record for a file written by the pipeline.
type Artifact struct {
	JobID         string       `json:"job_id" bson:"job_id"`
	CorrelationID string       `json:"correlation_id" bson:"correlation_id"`
	Kind          ArtifactKind `json:"kind" bson:"kind"`
	Path          string       `json:"path" bson:"path"`
	Filename      string       `json:"filename" bson:"filename"`
	Prompt        string       `json:"prompt" bson:"prompt"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
}

// ArtifactsFromContext builds index records for the files a run produced.
func ArtifactsFromContext(jobID string, ec *ExecutionContext) []*Artifact {
	var out []*Artifact
	now := time.Now().UTC()
	if ec.ImagePath != "" {
		out = append(out, &Artifact{
			JobID:         jobID,
			CorrelationID: ec.CorrelationID,
			Kind:          ArtifactImage,
			Path:          ec.ImagePath,
			Filename:      ec.ImageFilename,
			Prompt:        ec.EnhancedPrompt,
			CreatedAt:     now,
		})
	}
	if ec.ModelPath != "" {
		out = append(out, &Artifact{
			JobID:         jobID,
			CorrelationID: ec.CorrelationID,
			Kind:          ArtifactModel,
			Path:          ec.ModelPath,
			Filename:      ec.ModelFilename,
			Prompt:        ec.EnhancedPrompt,
			CreatedAt:     now,
		})
	}
	return out
}
