package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrDiscard tells the dispatcher a job's target no longer exists. The
// job is deleted rather than marked failed; there is nothing to retry.
var ErrDiscard = errors.New("job target gone, discard")

// Result is an executor's successful outcome for one job.
type Result struct {
	VideosAdded      int `json:"videosAdded"`
	VideosUpdated    int `json:"videosUpdated"`
	SnapshotsCreated int `json:"snapshotsCreated"`
	Saved            int `json:"saved"`
}

// Executor runs one job to completion or failure.
type Executor interface {
	Execute(ctx context.Context, job *Job) (Result, error)
}

// DispatchResult reports what Enqueue did with a job.
type DispatchResult struct {
	JobID      string        `json:"jobId"`
	Dispatched bool          `json:"dispatched"`
	Success    bool          `json:"success"`
	Result     Result        `json:"result"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Dispatcher hands pending jobs to supervised goroutines under a soft
// concurrency cap. The cap is read-then-compare without a transactional
// guard; brief overshoot under simultaneous enqueue bursts is accepted.
type Dispatcher struct {
	store  *Store
	exec   Executor
	logger *slog.Logger

	limit       int
	maxAttempts int

	// baseCtx outlives request contexts so an accepted job is never
	// cancelled by its caller disconnecting.
	baseCtx context.Context
	wg      sync.WaitGroup

	mu       sync.Mutex
	sweeping bool

	// dispatchMu serializes job placement and sweep dispatch in this
	// process. Across processes the cap stays soft.
	dispatchMu sync.Mutex
}

// NewDispatcher creates a dispatcher executing jobs via exec.
func NewDispatcher(baseCtx context.Context, store *Store, exec Executor, limit, maxAttempts int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Dispatcher{
		store:       store,
		exec:        exec,
		logger:      logger.With("component", "dispatcher"),
		limit:       limit,
		maxAttempts: maxAttempts,
		baseCtx:     baseCtx,
	}
}

// Enqueue persists a job and dispatches it immediately if capacity
// exists, otherwise leaves it pending. Either way a sweep is triggered
// so siblings enqueued together get picked up. It returns without
// waiting for the job to finish.
func (d *Dispatcher) Enqueue(ctx context.Context, job *Job) (*DispatchResult, error) {
	job, launched, err := d.enqueue(ctx, job, nil)
	if err != nil {
		return nil, err
	}
	if !launched {
		d.logger.Info("job queued at capacity", "id", job.ID)
	}
	d.sweepAsync()
	return &DispatchResult{JobID: job.ID, Dispatched: launched}, nil
}

// EnqueueWait is Enqueue for callers that need the sync outcome: if the
// job dispatches immediately, it blocks until the job finishes and
// returns its result. A job queued at capacity returns immediately with
// Dispatched false.
func (d *Dispatcher) EnqueueWait(ctx context.Context, job *Job) (*DispatchResult, error) {
	done := make(chan DispatchResult, 1)
	job, launched, err := d.enqueue(ctx, job, done)
	if err != nil {
		return nil, err
	}
	d.sweepAsync()
	if !launched {
		d.logger.Info("job queued at capacity", "id", job.ID)
		return &DispatchResult{JobID: job.ID}, nil
	}
	select {
	case res := <-done:
		return &res, nil
	case <-ctx.Done():
		// The job keeps running on the dispatcher's own context.
		return &DispatchResult{JobID: job.ID, Dispatched: true}, ctx.Err()
	}
}

// Sweep scans pending jobs and dispatches while capacity remains,
// highest priority first, oldest first within a priority. Pending jobs
// already past their attempt budget are failed.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	d.mu.Lock()
	if d.sweeping {
		d.mu.Unlock()
		return 0, nil
	}
	d.sweeping = true
	d.mu.Unlock()
	defer func() {
		d.mu.Lock()
		d.sweeping = false
		d.mu.Unlock()
	}()

	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	pending, err := d.store.ListByStatus(ctx, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("sweeping pending jobs: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	running, err := d.store.CountRunning(ctx)
	if err != nil {
		return 0, err
	}
	capacity := d.limit - running

	queue := newPendingQueue(pending)
	dispatched := 0
	for capacity > 0 {
		job := queue.next()
		if job == nil {
			break
		}
		if job.Attempts >= d.attemptBudget(job) {
			if err := d.store.MarkFailed(ctx, job, fmt.Sprintf("exceeded %d attempts", d.attemptBudget(job))); err != nil {
				d.logger.Warn("failed to expire job", "id", job.ID, "error", err)
			}
			continue
		}
		if err := d.launch(ctx, job, nil); err != nil {
			d.logger.Warn("failed to dispatch job", "id", job.ID, "error", err)
			continue
		}
		dispatched++
		capacity--
	}
	if dispatched > 0 {
		d.logger.Info("sweep dispatched jobs", "count", dispatched, "pending", len(pending))
	}
	return dispatched, nil
}

// Wait blocks until all in-flight jobs have finished. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// enqueue persists the job and dispatches it if capacity exists,
// reporting whether it launched. Create and the capacity check share the
// dispatch lock so a concurrent sweep never grabs a job its enqueuer is
// still placing. The running count comes from the store, so jobs started
// by other processes consume capacity too.
func (d *Dispatcher) enqueue(ctx context.Context, job *Job, done chan<- DispatchResult) (*Job, bool, error) {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	job, err := d.store.Create(ctx, job)
	if err != nil {
		return nil, false, err
	}
	running, err := d.store.CountRunning(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("counting running jobs: %w", err)
	}
	if running >= d.limit {
		return job, false, nil
	}
	if err := d.launch(ctx, job, done); err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// sweepAsync runs a sweep without blocking the caller.
func (d *Dispatcher) sweepAsync() {
	go func() {
		if _, err := d.Sweep(d.baseCtx); err != nil {
			d.logger.Warn("post-enqueue sweep failed", "error", err)
		}
	}()
}

// attemptBudget returns the job's own attempt ceiling, falling back to
// the dispatcher default when the job never set one.
func (d *Dispatcher) attemptBudget(job *Job) int {
	if job.MaxAttempts > 0 {
		return job.MaxAttempts
	}
	return d.maxAttempts
}

// launch marks the job running and hands it to a supervised goroutine.
// Execution uses the dispatcher's base context; failures are observed
// and recorded, never silently dropped.
func (d *Dispatcher) launch(ctx context.Context, job *Job, done chan<- DispatchResult) error {
	if err := d.store.MarkRunning(ctx, job); err != nil {
		return err
	}
	d.wg.Add(1)
	go d.run(job, done)
	return nil
}

func (d *Dispatcher) run(job *Job, done chan<- DispatchResult) {
	defer d.wg.Done()
	ctx := d.baseCtx
	start := time.Now()

	var (
		res Result
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panicked: %v", r)
			}
		}()
		res, err = d.exec.Execute(ctx, job)
	}()

	outcome := DispatchResult{
		JobID:      job.ID,
		Dispatched: true,
		Result:     res,
		Duration:   time.Since(start),
	}

	switch {
	case errors.Is(err, ErrDiscard):
		d.logger.Info("discarding job, target gone", "id", job.ID)
		if derr := d.store.Delete(ctx, job.ID); derr != nil {
			d.logger.Warn("failed to delete discarded job", "id", job.ID, "error", derr)
		}
		outcome.Error = err.Error()

	case err != nil:
		d.logger.Error("job failed", "id", job.ID, "type", job.Type, "error", err)
		if merr := d.store.MarkFailed(ctx, job, err.Error()); merr != nil {
			d.logger.Warn("failed to record job failure", "id", job.ID, "error", merr)
		}
		outcome.Error = err.Error()

	default:
		outcome.Success = true
		if merr := d.store.MarkCompleted(ctx, job); merr != nil {
			d.logger.Warn("failed to record job completion", "id", job.ID, "error", merr)
		}
		d.logger.Info("job completed",
			"id", job.ID,
			"type", job.Type,
			"saved", res.Saved,
			"duration", outcome.Duration)
	}

	if done != nil {
		done <- outcome
	}

	// Freed capacity may unblock queued work.
	if _, err := d.Sweep(ctx); err != nil {
		d.logger.Warn("post-completion sweep failed", "error", err)
	}
}
