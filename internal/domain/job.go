package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a media generation job.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// IsTerminal returns true if the status represents a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsValid checks if the status is one of the known lifecycle states.
func (s JobStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Cancellation is allowed from any non-terminal state; everything
// else follows pending → processing → {completed, failed}, with processing
// re-armed back to pending between retry attempts.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing || next == StatusCancelled || next == StatusFailed
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed ||
			next == StatusCancelled || next == StatusPending
	}
	return false
}

// Job represents a media generation request throughout its lifecycle.
type Job struct {
	ID         uuid.UUID      `json:"id"`
	Prompt     string         `json:"prompt"`
	ModelName  string         `json:"model_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Status     JobStatus      `json:"status"`

	RetryCount   int     `json:"retry_count"`
	ErrorMessage *string `json:"error_message,omitempty"`

	ResultURL     *string `json:"result_url,omitempty"`
	FilePath      *string `json:"file_path,omitempty"`
	FileSize      *int64  `json:"file_size,omitempty"`
	ExternalJobID *string `json:"external_job_id,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SubmitRequest represents an incoming generation request from the API.
type SubmitRequest struct {
	Prompt     string         `json:"prompt" binding:"required"`
	ModelName  string         `json:"model_name"`
	Parameters map[string]any `json:"parameters"`
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// ModelInfo describes a supported generation model.
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	Description string `json:"description,omitempty"`
}

// DefaultModel is used when a submission leaves model_name empty or uses
// the legacy "stable-diffusion" alias.
const DefaultModel = "black-forest-labs/flux-schnell"

// KnownModels lists the model identifiers accepted at submission time.
func KnownModels() []ModelInfo {
	return []ModelInfo{
		{
			Name:        "black-forest-labs/flux-schnell",
			Provider:    "replicate",
			Description: "Fast text-to-image generation",
		},
		{
			Name:        "black-forest-labs/flux-dev",
			Provider:    "replicate",
			Description: "Higher quality text-to-image generation",
		},
		{
			Name:        "stability-ai/sdxl",
			Provider:    "replicate",
			Description: "Stable Diffusion XL",
		},
		{
			Name:        "stable-diffusion",
			Provider:    "replicate",
			Description: "Alias for the default model",
		},
	}
}

// IsKnownModel reports whether name is an accepted model identifier.
func IsKnownModel(name string) bool {
	for _, m := range KnownModels() {
		if m.Name == name {
			return true
		}
	}
	return false
}
