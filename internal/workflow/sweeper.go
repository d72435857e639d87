package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/clipcast/clipcast-api/internal/job"
)

// Sweeper periodically reports jobs stuck in processing: a crash between
// steps leaves a job non-terminal with no run driving it. Whether such a
// job should be failed or re-driven is an operator decision, so the
// sweeper only surfaces them and never changes their status.
type Sweeper struct {
	jobs      job.Repository
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration

	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a Sweeper that scans every interval for jobs that
// have been in processing longer than threshold.
func NewSweeper(jobs job.Repository, logger *slog.Logger, interval, threshold time.Duration) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		jobs:      jobs,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		done:      make(chan struct{}),
	}
}

// Start launches the periodic scan.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if _, err := s.Sweep(context.Background()); err != nil {
					s.logger.Error("sweep failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop halts the periodic scan.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

// Sweep returns the jobs currently stuck in processing beyond the
// threshold and logs a warning for each.
func (s *Sweeper) Sweep(ctx context.Context) ([]*job.Job, error) {
	all, err := s.jobs.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-s.threshold)
	var stuck []*job.Job
	for _, j := range all {
		if j.Status == job.StatusProcessing && j.UpdatedAt.Before(cutoff) {
			stuck = append(stuck, j)
			s.logger.Warn("job stuck in processing",
				slog.String("job_id", j.ID),
				slog.String("user_id", j.UserID),
				slog.Time("since", j.UpdatedAt),
			)
		}
	}
	return stuck, nil
}
