package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is an asynchronous generation request.
type Job struct {
	ID            string           `json:"id" bson:"id"`
	UserID        string           `json:"user_id,omitempty" bson:"user_id,omitempty"`
	Prompt        string           `json:"prompt" bson:"prompt"`
	CorrelationID string           `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Status        JobStatus        `json:"status" bson:"status"`
	Result        *ExecutionResult `json:"result,omitempty" bson:"result,omitempty"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" bson:"updated_at"`
}

func NewJob(prompt, userID string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		UserID:    userID,
		Prompt:    prompt,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (j *Job) UpdateStatus(status JobStatus) {
	j.Status = status
	j.UpdatedAt = time.Now()
}

// Finish stores the outcome of a run and moves the job to its terminal status.
func (j *Job) Finish(result ExecutionResult) {
	j.Result = &result
	j.CorrelationID = result.CorrelationID
	if result.Success {
		j.UpdateStatus(JobStatusCompleted)
		return
	}
	j.UpdateStatus(JobStatusFailed)
}

func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Request builds the pipeline request for the job. The job id doubles as the
// correlation id so log lines can be matched to the job.
func (j *Job) Request() GenerationRequest {
	return GenerationRequest{Prompt: j.Prompt, UserID: j.UserID, CorrelationID: j.ID}
}
