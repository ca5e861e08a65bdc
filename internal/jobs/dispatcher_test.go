package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// blockingExecutor holds every job until released, recording order.
type blockingExecutor struct {
	mu      sync.Mutex
	started []string
	release chan struct{}
	err     error
}

func newBlockingExecutor() *blockingExecutor {
	return &blockingExecutor{release: make(chan struct{})}
}

func (e *blockingExecutor) Execute(ctx context.Context, job *Job) (Result, error) {
	e.mu.Lock()
	e.started = append(e.started, job.ID)
	e.mu.Unlock()
	<-e.release
	return Result{Saved: 1}, e.err
}

func (e *blockingExecutor) startedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.started)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestEnqueueSoftCap(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := newBlockingExecutor()
	d := NewDispatcher(context.Background(), store, exec, 6, 3, nil)
	ctx := context.Background()

	var dispatched atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := d.Enqueue(ctx, &Job{
				Type:     TypeSingleVideo,
				VideoURL: fmt.Sprintf("https://tiktok.com/v/%d", i),
				Priority: PriorityHigh,
			})
			if err != nil {
				t.Errorf("Enqueue failed: %v", err)
				return
			}
			if res.Dispatched {
				dispatched.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := dispatched.Load(); got != 6 {
		t.Errorf("expected 6 immediate dispatches under limit 6, got %d", got)
	}

	pending, err := store.ListByStatus(ctx, StatusPending)
	if err != nil {
		t.Fatalf("listing pending: %v", err)
	}
	if len(pending) != 4 {
		t.Errorf("expected 4 jobs held back by the cap, got %d", len(pending))
	}
	running, _ := store.CountRunning(ctx)
	if running != 6 {
		t.Errorf("expected 6 running, got %d", running)
	}

	// Completions free capacity and the post-completion sweep drains the
	// queue.
	close(exec.release)
	waitFor(t, func() bool {
		done, _ := store.ListByStatus(ctx, StatusCompleted)
		return len(done) == 10
	})
	d.Wait()
}

func TestEnqueueWaitReturnsResult(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := newBlockingExecutor()
	close(exec.release)
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)

	res, err := d.EnqueueWait(context.Background(), &Job{
		Type:     TypeAccountSync,
		Platform: "tiktok", AccountID: "a1",
	})
	if err != nil {
		t.Fatalf("EnqueueWait failed: %v", err)
	}
	if !res.Dispatched || !res.Success {
		t.Errorf("expected dispatched success, got %+v", res)
	}
	if res.Result.Saved != 1 {
		t.Errorf("expected executor result surfaced, got %+v", res.Result)
	}
	d.Wait()

	job, err := store.Get(context.Background(), res.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != StatusCompleted || job.Attempts != 1 {
		t.Errorf("unexpected job state: %+v", job)
	}
}

type funcExecutor func(ctx context.Context, job *Job) (Result, error)

func (f funcExecutor) Execute(ctx context.Context, job *Job) (Result, error) {
	return f(ctx, job)
}

func TestDiscardedJobIsDeleted(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := funcExecutor(func(ctx context.Context, job *Job) (Result, error) {
		return Result{}, fmt.Errorf("account vanished: %w", ErrDiscard)
	})
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)

	res, err := d.EnqueueWait(context.Background(), &Job{Type: TypeAccountSync, AccountID: "gone"})
	if err != nil {
		t.Fatalf("EnqueueWait failed: %v", err)
	}
	d.Wait()

	if _, err := store.Get(context.Background(), res.JobID); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("discarded job should be deleted, got err %v", err)
	}
	failed, _ := store.ListByStatus(context.Background(), StatusFailed)
	if len(failed) != 0 {
		t.Errorf("discarded job must not be marked failed")
	}
}

func TestFailedJobRecordsError(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := funcExecutor(func(ctx context.Context, job *Job) (Result, error) {
		return Result{}, errors.New("provider exploded")
	})
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)

	res, err := d.EnqueueWait(context.Background(), &Job{Type: TypeAccountSync, AccountID: "a1"})
	if err != nil {
		t.Fatalf("EnqueueWait failed: %v", err)
	}
	if res.Success {
		t.Error("expected failure surfaced")
	}
	d.Wait()

	job, _ := store.Get(context.Background(), res.JobID)
	if job.Status != StatusFailed || job.Error != "provider exploded" {
		t.Errorf("unexpected job state: %+v", job)
	}
}

func TestPanickingJobIsObserved(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := funcExecutor(func(ctx context.Context, job *Job) (Result, error) {
		panic("boom")
	})
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)

	res, err := d.EnqueueWait(context.Background(), &Job{Type: TypeSingleVideo, VideoURL: "u"})
	if err != nil {
		t.Fatalf("EnqueueWait failed: %v", err)
	}
	d.Wait()

	job, _ := store.Get(context.Background(), res.JobID)
	if job.Status != StatusFailed {
		t.Errorf("panicking job should be failed, got %q", job.Status)
	}
	_ = res
}

func TestSweepPriorityOrdering(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := newBlockingExecutor()
	close(exec.release)
	// Limit 1 serializes dispatch so the started order is deterministic.
	d := NewDispatcher(context.Background(), store, exec, 1, 3, nil)
	ctx := context.Background()

	// Seed pending jobs directly so nothing dispatches before the sweep.
	mk := func(id string, prio int, age time.Duration) {
		j := &Job{ID: id, Type: TypeAccountSync, AccountID: id, Priority: prio}
		if _, err := store.Create(ctx, j); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		// Backdate for deterministic FIFO ordering.
		err := db.Update(ctx, Collection, id, docstore.Document{
			"createdAt": docstore.FormatTime(time.Now().Add(-age)),
		})
		if err != nil {
			t.Fatalf("backdating failed: %v", err)
		}
	}
	mk("low", PriorityLow, 3*time.Hour)
	mk("high-old", PriorityHigh, 2*time.Hour)
	mk("high-new", PriorityHigh, time.Hour)
	mk("normal", PriorityNormal, time.Hour)

	n, err := d.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 dispatched with limit 1, got %d", n)
	}

	// Each completion sweeps again and picks the next-highest job.
	waitFor(t, func() bool {
		done, _ := store.ListByStatus(ctx, StatusCompleted)
		return len(done) == 4
	})
	d.Wait()

	exec.mu.Lock()
	got := append([]string(nil), exec.started...)
	exec.mu.Unlock()
	want := []string{"high-old", "high-new", "normal", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order %v, want %v", got, want)
		}
	}
}

func TestSweepExpiresExhaustedJobs(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	d := NewDispatcher(context.Background(), store, newBlockingExecutor(), 2, 2, nil)
	ctx := context.Background()

	j := &Job{ID: "tired", Type: TypeAccountSync, AccountID: "a1", MaxAttempts: 2}
	if _, err := store.Create(ctx, j); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := db.Update(ctx, Collection, "tired", docstore.Document{"attempts": int64(2)}); err != nil {
		t.Fatalf("seeding attempts failed: %v", err)
	}

	if _, err := d.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	job, _ := store.Get(ctx, "tired")
	if job.Status != StatusFailed {
		t.Errorf("exhausted job should be failed, got %q", job.Status)
	}
}

func TestSweepHonorsPerJobAttemptBudget(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := newBlockingExecutor()
	close(exec.release)
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)
	ctx := context.Background()

	mk := func(id string, maxAttempts, attempts int) {
		j := &Job{ID: id, Type: TypeAccountSync, AccountID: id, MaxAttempts: maxAttempts}
		if _, err := store.Create(ctx, j); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := db.Update(ctx, Collection, id, docstore.Document{"attempts": int64(attempts)}); err != nil {
			t.Fatalf("seeding attempts failed: %v", err)
		}
	}
	// At the dispatcher default of 3 attempts "patient" would be expired;
	// its own budget of 5 keeps it eligible. "strict" is past its budget
	// of 1 even though the default would allow more.
	mk("patient", 5, 3)
	mk("strict", 1, 1)

	n, err := d.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the patient job dispatched, got %d", n)
	}

	strict, _ := store.Get(ctx, "strict")
	if strict.Status != StatusFailed {
		t.Errorf("job past its own budget should be failed, got %q", strict.Status)
	}
	waitFor(t, func() bool {
		j, _ := store.Get(ctx, "patient")
		return j != nil && j.Status == StatusCompleted
	})
	d.Wait()
}

func TestEnqueueTriggersQueueSweep(t *testing.T) {
	db := docstore.NewMemoryStore()
	store := NewStore(db, nil)
	exec := newBlockingExecutor()
	d := NewDispatcher(context.Background(), store, exec, 2, 3, nil)
	ctx := context.Background()

	// A pending job left behind by an earlier process.
	if _, err := store.Create(ctx, &Job{ID: "stranded", Type: TypeAccountSync, AccountID: "a1"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := d.Enqueue(ctx, &Job{Type: TypeAccountSync, AccountID: "a2"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !res.Dispatched {
		t.Fatal("expected immediate dispatch with free capacity")
	}

	// The enqueue-triggered sweep picks up the stranded job without
	// waiting for a completion or a timer tick.
	waitFor(t, func() bool { return exec.startedCount() == 2 })

	close(exec.release)
	waitFor(t, func() bool {
		done, _ := store.ListByStatus(ctx, StatusCompleted)
		return len(done) == 2
	})
	d.Wait()
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusCompleted, false},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusPending, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusRunning, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}
