package reaper

import (
	"context"
	"testing"
	"time"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/videostore"
)

func TestSweepAccountsBoundary(t *testing.T) {
	db := docstore.NewMemoryStore()
	acct := accounts.NewStore(db, nil)
	engine := videostore.NewEngine(db, nil, nil)
	r := New(acct, engine, nil, Config{}, nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := func(id string, status accounts.SyncStatus, started time.Time) {
		a := &accounts.Account{
			Platform:        "tiktok",
			AccountID:       id,
			SyncStatus:      status,
			LastSyncStarted: &started,
			IsActive:        true,
		}
		if err := acct.Put(ctx, a); err != nil {
			t.Fatalf("seeding account failed: %v", err)
		}
	}

	seed("stale-syncing", accounts.SyncSyncing, now.Add(-10*time.Minute-time.Second))
	seed("stale-pending", accounts.SyncPending, now.Add(-11*time.Minute))
	seed("boundary", accounts.SyncSyncing, now.Add(-10*time.Minute))
	seed("fresh", accounts.SyncSyncing, now.Add(-9*time.Minute))
	seed("idle", accounts.SyncIdle, now.Add(-time.Hour))

	reset, err := r.SweepAccounts(ctx, now)
	if err != nil {
		t.Fatalf("SweepAccounts failed: %v", err)
	}
	if reset != 2 {
		t.Errorf("expected 2 accounts reset, got %d", reset)
	}

	for _, id := range []string{"stale-syncing", "stale-pending"} {
		a, _ := acct.Get(ctx, "tiktok", id)
		if a.SyncStatus != accounts.SyncIdle {
			t.Errorf("%s should be idle, got %q", id, a.SyncStatus)
		}
		if a.LastSyncError == "" {
			t.Errorf("%s should carry an explanatory error", id)
		}
	}

	boundary, _ := acct.Get(ctx, "tiktok", "boundary")
	if boundary.SyncStatus != accounts.SyncSyncing {
		t.Errorf("account at exactly the threshold must not be reset")
	}
	fresh, _ := acct.Get(ctx, "tiktok", "fresh")
	if fresh.SyncStatus != accounts.SyncSyncing {
		t.Errorf("fresh account must not be reset")
	}
}

func TestSweepVideosBoundary(t *testing.T) {
	db := docstore.NewMemoryStore()
	acct := accounts.NewStore(db, nil)
	engine := videostore.NewEngine(db, nil, nil)
	r := New(acct, engine, nil, Config{VideoTimeout: 5 * time.Minute}, nil)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// One stuck past the threshold, one just inside it.
	stale := now.Add(-5*time.Minute - time.Second)
	fresh := now.Add(-4*time.Minute - 59*time.Second)
	mock := &videostore.Video{
		Platform: "tiktok", AccountID: "a1", ProviderVideoID: "stale",
		Status: videostore.StatusProcessing, SyncRequestedAt: &stale,
	}
	mock2 := &videostore.Video{
		Platform: "tiktok", AccountID: "a1", ProviderVideoID: "fresh",
		Status: videostore.StatusProcessing, SyncRequestedAt: &fresh,
	}
	for _, v := range []*videostore.Video{mock, mock2} {
		if err := db.Set(ctx, videostore.Collection, v.Key(), v.Doc()); err != nil {
			t.Fatalf("seeding failed: %v", err)
		}
	}

	reset, err := r.SweepVideos(ctx, now)
	if err != nil {
		t.Fatalf("SweepVideos failed: %v", err)
	}
	if reset != 1 {
		t.Errorf("expected 1 video reset, got %d", reset)
	}

	v, err := engine.Get(ctx, videostore.DocKey("tiktok", "a1", "stale"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v.Status != videostore.StatusActive || v.SyncError == "" {
		t.Errorf("stale video not reset: %+v", v)
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.VideoTimeout != DefaultVideoTimeout {
		t.Errorf("video timeout default wrong: %s", cfg.VideoTimeout)
	}
	if cfg.AccountTimeout != DefaultAccountTimeout {
		t.Errorf("account timeout default wrong: %s", cfg.AccountTimeout)
	}
	if cfg.Interval != DefaultInterval {
		t.Errorf("interval default wrong: %s", cfg.Interval)
	}
	if cfg.SweepInterval != DefaultSweepInterval {
		t.Errorf("sweep interval default wrong: %s", cfg.SweepInterval)
	}
}

type noopExecutor struct{}

func (noopExecutor) Execute(ctx context.Context, job *jobs.Job) (jobs.Result, error) {
	return jobs.Result{}, nil
}

func TestStartSchedulesQueueSweep(t *testing.T) {
	db := docstore.NewMemoryStore()
	acct := accounts.NewStore(db, nil)
	engine := videostore.NewEngine(db, nil, nil)
	store := jobs.NewStore(db, nil)
	d := jobs.NewDispatcher(context.Background(), store, noopExecutor{}, 2, 3, nil)

	// Long periods keep the schedules from firing during the test.
	r := New(acct, engine, d, Config{Interval: time.Hour, SweepInterval: 30 * time.Minute}, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := len(r.cron.Entries()); got != 2 {
		t.Errorf("expected stuck-work and queue sweep schedules, got %d", got)
	}
	r.Stop()

	bare := New(acct, engine, nil, Config{Interval: time.Hour}, nil)
	if err := bare.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := len(bare.cron.Entries()); got != 1 {
		t.Errorf("expected only the stuck-work schedule, got %d", got)
	}
	bare.Stop()
}
