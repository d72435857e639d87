package job

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses maps with an RWMutex for thread-safe access.
// Suitable for development and testing; swap for persistent storage in production.
type MemoryRepository struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	clips    map[string][]Clip            // by job ID, insertion order
	clipKeys map[string]map[string]bool   // job ID -> storage keys already recorded
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs:     make(map[string]*Job),
		clips:    make(map[string][]Clip),
		clipKeys: make(map[string]map[string]bool),
	}
}

// Create persists a new job. Stores a clone to avoid external mutations.
func (r *MemoryRepository) Create(_ context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	return nil
}

// FindByID retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.Clone(), nil
}

// SetStatus moves a job through its state machine.
func (r *MemoryRepository) SetStatus(_ context.Context, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	return j.TransitionTo(status)
}

// List returns all jobs in the repository as clones.
func (r *MemoryRepository) List(_ context.Context) ([]*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		result = append(result, j.Clone())
	}
	return result, nil
}

// CreateClips bulk-inserts clips, skipping storage keys already recorded
// for the same job, and returns the number actually inserted.
func (r *MemoryRepository) CreateClips(_ context.Context, clips []Clip) (int, error) {
	if len(clips) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, c := range clips {
		seen := r.clipKeys[c.JobID]
		if seen == nil {
			seen = make(map[string]bool)
			r.clipKeys[c.JobID] = seen
		}
		if seen[c.StorageKey] {
			continue
		}
		seen[c.StorageKey] = true
		r.clips[c.JobID] = append(r.clips[c.JobID], c)
		inserted++
	}
	return inserted, nil
}

// ListClipsByJob returns the clips created for a job in insertion order.
func (r *MemoryRepository) ListClipsByJob(_ context.Context, jobID string) ([]Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clips := r.clips[jobID]
	result := make([]Clip, len(clips))
	copy(result, clips)
	return result, nil
}
