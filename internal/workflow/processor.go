// Package workflow provides the processing workflow that drives an
// uploaded recording from queued to a terminal status: credit check,
// compute invocation, clip bookkeeping and quota debit, with the job
// marked failed on any error along the way.
package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/clipcast/clipcast-api/internal/clipper"
	"github.com/clipcast/clipcast-api/internal/job"
	"github.com/clipcast/clipcast-api/internal/storage"
	"github.com/clipcast/clipcast-api/internal/user"
)

// Event is the trigger payload for one processing run.
type Event struct {
	// JobID identifies the uploaded recording to process.
	JobID string
	// UserID is the concurrency key: runs for the same user are
	// serialized, runs for different users proceed in parallel.
	UserID string
	// RequestedCap is the maximum number of clips the caller asked for.
	// The run never requests more than the owner's current balance.
	RequestedCap int
}

// Processor executes processing runs. It owns no state beyond the
// per-user serialization; all durable effects go through the injected
// repository, ledger, gateway and lister.
type Processor struct {
	jobs    job.Repository
	ledger  user.Ledger
	gateway clipper.Client
	lister  storage.Lister
	logger  *slog.Logger
	locks   *keyedMutex
}

// NewProcessor creates a Processor with its collaborators.
func NewProcessor(jobs job.Repository, ledger user.Ledger, gateway clipper.Client, lister storage.Lister, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		jobs:    jobs,
		ledger:  ledger,
		gateway: gateway,
		lister:  lister,
		logger:  logger,
		locks:   newKeyedMutex(),
	}
}

// Process drives one job to a terminal status.
//
// Credits are debited only after clips are durably recorded, and by
// exactly the recorded count, so no failure path ever needs a refund.
// If the job does not exist the run aborts before touching any state.
// Every later error marks the job failed (best effort) and is returned
// to the caller for recording upstream.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	unlock := p.locks.Lock(ev.UserID)
	defer unlock()

	log := p.logger.With(
		slog.String("job_id", ev.JobID),
		slog.String("user_id", ev.UserID),
	)
	log.Info("processing started", slog.Int("requested_cap", ev.RequestedCap))

	// Freshest possible read: the job row and the balance. Any earlier
	// check happened before the event sat in the queue and may be stale.
	jb, err := p.jobs.FindByID(ctx, ev.JobID)
	if err != nil {
		log.Error("job lookup failed", slog.String("error", err.Error()))
		return err
	}

	balance, err := p.ledger.Credits(ctx, jb.UserID)
	if err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	if balance == 0 {
		if err := p.jobs.SetStatus(ctx, jb.ID, job.StatusNoCredits); err != nil {
			return p.fail(ctx, log, jb.ID, err)
		}
		log.Info("no credits available, skipping processing")
		return nil
	}

	if err := p.jobs.SetStatus(ctx, jb.ID, job.StatusProcessing); err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	// Never ask the endpoint for more clips than the owner can pay for.
	effectiveCap := ev.RequestedCap
	if balance < effectiveCap {
		effectiveCap = balance
	}

	if err := p.gateway.Process(ctx, jb.StorageKey, effectiveCap); err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	keys, err := p.lister.ListByPrefix(ctx, jb.Prefix())
	if err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	// The listing, not the gateway's word, decides what was produced.
	// Drop the uploaded source and re-clamp in case the endpoint
	// rendered more than it was asked for.
	candidates := clipKeys(keys)
	if len(candidates) > effectiveCap {
		candidates = candidates[:effectiveCap]
	}

	clips := make([]job.Clip, 0, len(candidates))
	for _, key := range candidates {
		clips = append(clips, job.NewClip(jb.ID, jb.UserID, key))
	}
	// Clips already recorded by an earlier run of the same job are
	// skipped by the store. Only newly inserted rows cost credits, so a
	// re-driven run never charges twice for the same clip.
	created, err := p.jobs.CreateClips(ctx, clips)
	if err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	// Debit exactly what was recorded, not what was requested.
	if created > 0 {
		if err := p.ledger.Debit(ctx, jb.UserID, created); err != nil {
			return p.fail(ctx, log, jb.ID, err)
		}
	}

	if err := p.jobs.SetStatus(ctx, jb.ID, job.StatusProcessed); err != nil {
		return p.fail(ctx, log, jb.ID, err)
	}

	log.Info("processing finished",
		slog.Int("clips_created", created),
		slog.Int("credits_debited", created),
	)
	return nil
}

// fail marks the job failed (best effort) and returns the original error.
func (p *Processor) fail(ctx context.Context, log *slog.Logger, jobID string, cause error) error {
	log.Error("processing failed", slog.String("error", cause.Error()))
	if err := p.jobs.SetStatus(ctx, jobID, job.StatusFailed); err != nil {
		// The job may stay stuck in processing; the sweeper reports it.
		log.Error("failed to mark job failed", slog.String("error", err.Error()))
	}
	return cause
}

// clipKeys filters an enumeration result down to generated clips,
// excluding the uploaded source object.
func clipKeys(keys []string) []string {
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, job.SourceObjectName) {
			continue
		}
		result = append(result, k)
	}
	return result
}
