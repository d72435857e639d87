// Package server provides the HTTP surface for the ClipCast API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import "time"

// RegisterJobRequest is the HTTP request body for registering an uploaded
// recording.
type RegisterJobRequest struct {
	// UserID is the owning user.
	UserID string `json:"user_id" validate:"required"`
}

// RegisterJobResponse is the HTTP response after registering a job.
type RegisterJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// StorageKey is where the source recording must be uploaded.
	StorageKey string `json:"storage_key"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// ProcessJobRequest is the HTTP request body for triggering processing.
type ProcessJobRequest struct {
	// MaxClips is the requested ceiling on generated clips.
	MaxClips int `json:"max_clips" validate:"required,min=1,max=100"`
}

// ProcessJobResponse is the HTTP response after a trigger was accepted.
type ProcessJobResponse struct {
	// JobID identifies the job the event was queued for.
	JobID string `json:"job_id"`
	// Status is the job status at the time of the trigger.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// UserID is the owning user.
	UserID string `json:"user_id"`
	// StorageKey is the object key of the uploaded source.
	StorageKey string `json:"storage_key"`
	// Status is the current job status.
	Status string `json:"status"`
	// CreatedAt is when the job was registered.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time `json:"updated_at"`
}

// ClipResponse describes one generated clip.
type ClipResponse struct {
	// ID is the unique identifier for the clip.
	ID string `json:"id"`
	// JobID references the producing job.
	JobID string `json:"job_id"`
	// StorageKey is the object key of the rendered clip.
	StorageKey string `json:"storage_key"`
	// CreatedAt is when the clip was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// CreditsResponse is the HTTP response for a balance read.
type CreditsResponse struct {
	// UserID is the account the balance belongs to.
	UserID string `json:"user_id"`
	// Credits is the current balance.
	Credits int `json:"credits"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
