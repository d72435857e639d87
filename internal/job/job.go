// Package job provides the Job aggregate for uploaded podcast recordings
// and the Clip artifacts derived from them. It includes the job status
// state machine and the repository port for persistence.
package job

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceObjectName is the well-known object name of the uploaded source
// recording inside a job's storage namespace. Enumeration of the namespace
// must never report the source as a generated clip.
const SourceObjectName = "original.mp4"

// Status represents the current state of a Job.
type Status string

const (
	// StatusQueued indicates the upload finished and the job awaits processing.
	StatusQueued Status = "queued"
	// StatusProcessing indicates the job passed the credit check and was
	// handed to the compute endpoint.
	StatusProcessing Status = "processing"
	// StatusProcessed indicates clips were created and credits debited.
	StatusProcessed Status = "processed"
	// StatusNoCredits indicates the owner had a zero balance at check time.
	StatusNoCredits Status = "no credits"
	// StatusFailed indicates some step of the run errored.
	StatusFailed Status = "failed"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid status transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusQueued:     {StatusProcessing, StatusNoCredits, StatusFailed},
	StatusProcessing: {StatusProcessed, StatusFailed},
	StatusProcessed:  {},
	StatusNoCredits:  {},
	StatusFailed:     {},
}

// CanTransition reports whether a job may move from one status to another.
// Re-applying the current status is allowed so that status writes stay
// idempotent under re-delivery.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusProcessed, StatusNoCredits, StatusFailed:
		return true
	default:
		return false
	}
}

// Job represents one uploaded source recording and its processing lifecycle.
type Job struct {
	// ID is the unique identifier for this job.
	ID string
	// UserID references the owning user.
	UserID string
	// StorageKey is the object key of the uploaded source, for example
	// "d2f1.../original.mp4". Everything under the same namespace prefix
	// belongs to this job.
	StorageKey string
	// Status is the current lifecycle state.
	Status Status
	// CreatedAt is when the job was registered.
	CreatedAt time.Time
	// UpdatedAt is when the job last changed state.
	UpdatedAt time.Time
}

// New creates a queued Job for the given owner with a fresh storage
// namespace. The source is expected to be uploaded to StorageKey by the
// (external) upload flow.
func New(userID string) *Job {
	now := time.Now().UTC()
	ns := uuid.NewString()
	return &Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		StorageKey: ns + "/" + SourceObjectName,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Prefix returns the storage namespace this job's objects live under:
// the segment of StorageKey before the first slash.
func (j *Job) Prefix() string {
	if i := strings.IndexByte(j.StorageKey, '/'); i >= 0 {
		return j.StorageKey[:i]
	}
	return j.StorageKey
}

// TransitionTo moves the job to the given status, validating the state
// machine. Setting the current status again is a no-op.
func (j *Job) TransitionTo(status Status) error {
	if !CanTransition(j.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, status)
	}
	if j.Status == status {
		return nil
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}

// Clip represents one generated short clip derived from a Job.
// Clips are immutable once created.
type Clip struct {
	// ID is the unique identifier for this clip.
	ID string
	// JobID references the job that produced the clip.
	JobID string
	// UserID references the owning user. Denormalized from the job so
	// ownership checks need no join.
	UserID string
	// StorageKey is the object key of the rendered clip.
	StorageKey string
	// CreatedAt is when the clip row was recorded.
	CreatedAt time.Time
}

// NewClip creates a Clip for the given job and owner at the given key.
func NewClip(jobID, userID, storageKey string) Clip {
	return Clip{
		ID:         uuid.NewString(),
		JobID:      jobID,
		UserID:     userID,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}
}
