package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a job cannot be found by ID.
var ErrJobNotFound = errors.New("job not found")

// Repository defines the interface for job and clip persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Create persists a new job.
	Create(ctx context.Context, job *Job) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// SetStatus moves a job to the given status. Setting the status the
	// job already has is a no-op; an invalid transition returns
	// ErrInvalidTransition. Returns ErrJobNotFound if the job does not exist.
	SetStatus(ctx context.Context, id string, status Status) error

	// List returns all jobs.
	List(ctx context.Context) ([]*Job, error)

	// CreateClips bulk-inserts clip rows and returns how many were
	// actually inserted. An empty slice is a no-op. A clip whose
	// (job, storage key) pair already exists is silently skipped so the
	// call tolerates re-invocation with identical input; skipped rows do
	// not count toward the returned total.
	CreateClips(ctx context.Context, clips []Clip) (int, error)

	// ListClipsByJob returns the clips created for a job, oldest first.
	ListClipsByJob(ctx context.Context, jobID string) ([]Clip, error)
}
