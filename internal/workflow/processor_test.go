package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipcast/clipcast-api/internal/job"
	"github.com/clipcast/clipcast-api/internal/storage"
	"github.com/clipcast/clipcast-api/internal/user"
)

// gatewayFunc adapts a function to the clipper.Client interface.
type gatewayFunc func(ctx context.Context, storageKey string, maxClips int) error

func (f gatewayFunc) Process(ctx context.Context, storageKey string, maxClips int) error {
	return f(ctx, storageKey, maxClips)
}

// fixture wires a processor over in-memory collaborators with one user
// and one queued job.
type fixture struct {
	jobs   *job.MemoryRepository
	ledger *user.MemoryLedger
	lister *storage.MemoryLister
	job    *job.Job
}

func newFixture(t *testing.T, credits int) *fixture {
	t.Helper()
	f := &fixture{
		jobs:   job.NewMemoryRepository(),
		ledger: user.NewMemoryLedger(),
		lister: storage.NewMemoryLister(),
	}
	require.NoError(t, f.ledger.Grant(context.Background(), "user-1", credits))
	f.job = job.New("user-1")
	require.NoError(t, f.jobs.Create(context.Background(), f.job))
	f.lister.Put(f.job.StorageKey)
	return f
}

// producing returns a gateway that simulates the compute endpoint by
// writing n clip objects into the job's storage namespace.
func (f *fixture) producing(n int) gatewayFunc {
	return func(_ context.Context, storageKey string, _ int) error {
		for i := 0; i < n; i++ {
			f.lister.Put(fmt.Sprintf("%s/clip_%02d.mp4", f.job.Prefix(), i))
		}
		return nil
	}
}

func (f *fixture) processor(gw gatewayFunc) *Processor {
	return NewProcessor(f.jobs, f.ledger, gw, f.lister, nil)
}

func (f *fixture) event(cap int) Event {
	return Event{JobID: f.job.ID, UserID: f.job.UserID, RequestedCap: cap}
}

func (f *fixture) status(t *testing.T) job.Status {
	t.Helper()
	j, err := f.jobs.FindByID(context.Background(), f.job.ID)
	require.NoError(t, err)
	return j.Status
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	b, err := f.ledger.Credits(context.Background(), "user-1")
	require.NoError(t, err)
	return b
}

func (f *fixture) clips(t *testing.T) []job.Clip {
	t.Helper()
	clips, err := f.jobs.ListClipsByJob(context.Background(), f.job.ID)
	require.NoError(t, err)
	return clips
}

func TestProcessor_Process_DebitsExactlyWhatWasProduced(t *testing.T) {
	// balance=5, cap=10, endpoint produces 3: effective cap 5 goes out,
	// 3 clips come back, 3 credits leave, balance lands on 2.
	f := newFixture(t, 5)

	var sentCap int
	gw := gatewayFunc(func(ctx context.Context, key string, maxClips int) error {
		sentCap = maxClips
		return f.producing(3)(ctx, key, maxClips)
	})

	err := f.processor(gw).Process(context.Background(), f.event(10))
	require.NoError(t, err)

	assert.Equal(t, 5, sentCap, "effective cap must be min(requested, balance)")
	assert.Equal(t, job.StatusProcessed, f.status(t))
	assert.Len(t, f.clips(t), 3)
	assert.Equal(t, 2, f.balance(t))
}

func TestProcessor_Process_ZeroBalance(t *testing.T) {
	f := newFixture(t, 0)

	called := false
	gw := gatewayFunc(func(context.Context, string, int) error {
		called = true
		return nil
	})

	err := f.processor(gw).Process(context.Background(), f.event(5))
	require.NoError(t, err, "no credits is a normal terminal branch, not an error")

	assert.Equal(t, job.StatusNoCredits, f.status(t))
	assert.False(t, called, "gateway must not be invoked with zero balance")
	assert.Empty(t, f.clips(t))
	assert.Equal(t, 0, f.balance(t))
}

func TestProcessor_Process_GatewayFailure(t *testing.T) {
	f := newFixture(t, 2)

	gatewayErr := errors.New("backend processing failed")
	gw := gatewayFunc(func(context.Context, string, int) error {
		return gatewayErr
	})

	err := f.processor(gw).Process(context.Background(), f.event(5))
	require.ErrorIs(t, err, gatewayErr, "the original error is surfaced to the runtime")

	assert.Equal(t, job.StatusFailed, f.status(t))
	assert.Empty(t, f.clips(t), "no partial artifacts on gateway failure")
	assert.Equal(t, 2, f.balance(t), "no partial debit on gateway failure")
}

func TestProcessor_Process_JobNotFound(t *testing.T) {
	f := newFixture(t, 5)

	gw := gatewayFunc(func(context.Context, string, int) error {
		t.Error("gateway must not be invoked for a missing job")
		return nil
	})

	ev := Event{JobID: "nonexistent", UserID: "user-1", RequestedCap: 1}
	err := f.processor(gw).Process(context.Background(), ev)
	require.ErrorIs(t, err, job.ErrJobNotFound)

	// The run aborted before any mutation
	assert.Equal(t, 5, f.balance(t))
	assert.Equal(t, job.StatusQueued, f.status(t))
}

func TestProcessor_Process_SourceObjectNeverBecomesClip(t *testing.T) {
	f := newFixture(t, 10)

	// Endpoint produces one clip; the source sits in the same namespace.
	err := f.processor(f.producing(1)).Process(context.Background(), f.event(10))
	require.NoError(t, err)

	clips := f.clips(t)
	require.Len(t, clips, 1)
	assert.NotEqual(t, f.job.StorageKey, clips[0].StorageKey)
	assert.Equal(t, 9, f.balance(t))
}

func TestProcessor_Process_ClampsOverproduction(t *testing.T) {
	// Endpoint ignores the cap and renders 5; only 2 may be kept and paid.
	f := newFixture(t, 2)

	err := f.processor(f.producing(5)).Process(context.Background(), f.event(2))
	require.NoError(t, err)

	assert.Equal(t, job.StatusProcessed, f.status(t))
	assert.Len(t, f.clips(t), 2)
	assert.Equal(t, 0, f.balance(t))
}

func TestProcessor_Process_NoClipsProduced(t *testing.T) {
	// Short source material can legitimately yield zero clips.
	f := newFixture(t, 3)

	err := f.processor(f.producing(0)).Process(context.Background(), f.event(5))
	require.NoError(t, err)

	assert.Equal(t, job.StatusProcessed, f.status(t))
	assert.Empty(t, f.clips(t))
	assert.Equal(t, 3, f.balance(t), "zero clips means zero debit")
}

func TestProcessor_Process_RedeliveryDoesNotDoubleDebit(t *testing.T) {
	// A run that died after recording clips and debiting, but before the
	// processed status write, leaves the job in processing. Re-delivering
	// the event must finish the job without charging the clips again.
	f := newFixture(t, 5)
	ctx := context.Background()

	require.NoError(t, f.jobs.SetStatus(ctx, f.job.ID, job.StatusProcessing))
	recorded := []job.Clip{
		job.NewClip(f.job.ID, f.job.UserID, f.job.Prefix()+"/clip_00.mp4"),
		job.NewClip(f.job.ID, f.job.UserID, f.job.Prefix()+"/clip_01.mp4"),
	}
	n, err := f.jobs.CreateClips(ctx, recorded)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NoError(t, f.ledger.Debit(ctx, "user-1", 2))
	f.lister.Put(recorded[0].StorageKey, recorded[1].StorageKey)
	require.Equal(t, 3, f.balance(t))

	// The endpoint re-renders the same two objects on the second run.
	err = f.processor(f.producing(2)).Process(ctx, f.event(5))
	require.NoError(t, err)

	assert.Equal(t, job.StatusProcessed, f.status(t))
	assert.Len(t, f.clips(t), 2, "no duplicate clip rows on re-delivery")
	assert.Equal(t, 3, f.balance(t), "already recorded clips are not charged again")
}

func TestProcessor_Process_ListerFailure(t *testing.T) {
	f := newFixture(t, 3)

	p := NewProcessor(f.jobs, f.ledger,
		gatewayFunc(func(context.Context, string, int) error { return nil }),
		failingLister{},
		nil,
	)

	err := p.Process(context.Background(), f.event(3))
	require.Error(t, err)

	assert.Equal(t, job.StatusFailed, f.status(t))
	assert.Equal(t, 3, f.balance(t))
}

type failingLister struct{}

func (failingLister) ListByPrefix(context.Context, string) ([]string, error) {
	return nil, errors.New("listing unavailable")
}

func TestProcessor_Process_SameUserRunsAreSerialized(t *testing.T) {
	// One credit, two jobs triggered at once: exactly one run may spend
	// it. The loser observes the post-debit balance, never the stale one.
	jobs := job.NewMemoryRepository()
	ledger := user.NewMemoryLedger()
	lister := storage.NewMemoryLister()
	ctx := context.Background()

	require.NoError(t, ledger.Grant(ctx, "user-1", 1))

	jobA := job.New("user-1")
	jobB := job.New("user-1")
	require.NoError(t, jobs.Create(ctx, jobA))
	require.NoError(t, jobs.Create(ctx, jobB))
	lister.Put(jobA.StorageKey, jobB.StorageKey)

	byID := map[string]*job.Job{jobA.ID: jobA, jobB.ID: jobB}
	gw := gatewayFunc(func(_ context.Context, storageKey string, _ int) error {
		for _, j := range byID {
			if j.StorageKey == storageKey {
				lister.Put(j.Prefix() + "/clip_00.mp4")
			}
		}
		return nil
	})

	p := NewProcessor(jobs, ledger, gw, lister, nil)

	var wg sync.WaitGroup
	for _, id := range []string{jobA.ID, jobB.ID} {
		wg.Add(1)
		go func(jobID string) {
			defer wg.Done()
			_ = p.Process(ctx, Event{JobID: jobID, UserID: "user-1", RequestedCap: 1})
		}(id)
	}
	wg.Wait()

	balance, err := ledger.Credits(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, balance, "the single credit is spent exactly once")

	clipsA, _ := jobs.ListClipsByJob(ctx, jobA.ID)
	clipsB, _ := jobs.ListClipsByJob(ctx, jobB.ID)
	assert.Equal(t, 1, len(clipsA)+len(clipsB), "only one run may create a clip")

	a, _ := jobs.FindByID(ctx, jobA.ID)
	b, _ := jobs.FindByID(ctx, jobB.ID)
	statuses := map[job.Status]int{a.Status: 1}
	statuses[b.Status]++
	assert.Equal(t, 1, statuses[job.StatusProcessed], "exactly one job is processed")
	assert.Equal(t, 1, statuses[job.StatusNoCredits], "the other sees the drained balance")
}

func TestProcessor_Process_DifferentUsersRunInParallel(t *testing.T) {
	jobs := job.NewMemoryRepository()
	ledger := user.NewMemoryLedger()
	lister := storage.NewMemoryLister()
	ctx := context.Background()

	// A gateway where user-1's run blocks until user-2's run finished:
	// deadlocks here would mean cross-user serialization.
	release := make(chan struct{})
	var created []*job.Job
	for _, uid := range []string{"user-1", "user-2"} {
		require.NoError(t, ledger.Grant(ctx, uid, 1))
		j := job.New(uid)
		require.NoError(t, jobs.Create(ctx, j))
		lister.Put(j.StorageKey)
		created = append(created, j)
	}

	gw := gatewayFunc(func(_ context.Context, storageKey string, _ int) error {
		if storageKey == created[0].StorageKey {
			<-release
		} else {
			close(release)
		}
		return nil
	})

	p := NewProcessor(jobs, ledger, gw, lister, nil)

	var wg sync.WaitGroup
	for i, j := range created {
		wg.Add(1)
		go func(jb *job.Job, uid string) {
			defer wg.Done()
			err := p.Process(ctx, Event{JobID: jb.ID, UserID: uid, RequestedCap: 1})
			assert.NoError(t, err)
		}(j, fmt.Sprintf("user-%d", i+1))
	}
	wg.Wait()

	for _, j := range created {
		got, err := jobs.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, job.StatusProcessed, got.Status)
	}
}

func TestProcessor_Process_DebitEqualsClipCount_Property(t *testing.T) {
	// creditsDebited == clipsCreated across a spread of balances, caps
	// and produced counts.
	cases := []struct {
		balance, cap, produced int
	}{
		{1, 1, 1},
		{3, 1, 1},
		{1, 3, 1},
		{5, 10, 3},
		{10, 5, 7},
		{4, 4, 0},
		{2, 8, 2},
	}

	for _, tc := range cases {
		name := fmt.Sprintf("balance=%d cap=%d produced=%d", tc.balance, tc.cap, tc.produced)
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, tc.balance)

			err := f.processor(f.producing(tc.produced)).Process(context.Background(), f.event(tc.cap))
			require.NoError(t, err)

			clips := f.clips(t)
			debited := tc.balance - f.balance(t)
			assert.Equal(t, len(clips), debited, "debit must equal clips created")

			effective := tc.cap
			if tc.balance < effective {
				effective = tc.balance
			}
			assert.LessOrEqual(t, len(clips), effective, "clips never exceed min(cap, balance)")
			assert.Equal(t, job.StatusProcessed, f.status(t))
		})
	}
}
