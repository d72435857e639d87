package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueFull is returned when the event queue cannot take another event.
var ErrQueueFull = errors.New("workflow: event queue is full")

// ErrStopped is returned when an event is enqueued after Stop.
var ErrStopped = errors.New("workflow: dispatcher stopped")

// Dispatcher consumes trigger events from a bounded in-process queue and
// hands them to the Processor on a fixed pool of workers. Per-user
// serialization is enforced by the Processor itself, so workers only
// bound how many users are processed at once.
type Dispatcher struct {
	processor *Processor
	logger    *slog.Logger
	queue     chan Event
	workers   int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// DispatcherOption is a function that configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithQueueSize sets the capacity of the event queue.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

// NewDispatcher creates a Dispatcher. Call Start to begin consuming.
func NewDispatcher(processor *Processor, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		processor: processor,
		logger:    logger,
		queue:     make(chan Event, 64),
		workers:   4,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.queue {
		// Run errors are already recorded on the job; log for operators.
		if err := d.processor.Process(context.Background(), ev); err != nil {
			d.logger.Error("workflow run failed",
				slog.String("job_id", ev.JobID),
				slog.String("user_id", ev.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Enqueue offers an event to the queue without blocking.
// Returns ErrQueueFull when the queue is at capacity and ErrStopped after
// Stop has been called.
func (d *Dispatcher) Enqueue(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for in-flight runs to finish.
// Events already queued are still processed.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
