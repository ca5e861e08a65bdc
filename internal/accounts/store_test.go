package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(docstore.NewMemoryStore(), nil)
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	acct := &Account{
		Platform:  "tiktok",
		AccountID: "acct-1",
		Handle:    "@creator",
		OrgID:     "org-1",
		ProjectID: "proj-1",
		IsActive:  true,
	}
	if err := store.Put(ctx, acct); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := store.Get(ctx, "tiktok", "acct-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Handle != "@creator" {
		t.Errorf("Handle = %q, want %q", got.Handle, "@creator")
	}
	if got.SyncStatus != SyncIdle {
		t.Errorf("SyncStatus = %q, want %q", got.SyncStatus, SyncIdle)
	}

	if err := store.Delete(ctx, "tiktok", "acct-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "tiktok", "acct-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "tiktok", "acct-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() again error = %v, want ErrNotFound", err)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "tiktok", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestListActive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, a := range []*Account{
		{Platform: "tiktok", AccountID: "a1", IsActive: true},
		{Platform: "tiktok", AccountID: "a2", IsActive: false},
		{Platform: "instagram", AccountID: "a3", IsActive: true},
	} {
		if err := store.Put(ctx, a); err != nil {
			t.Fatalf("Put(%s) error = %v", a.AccountID, err)
		}
	}

	active, err := store.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("len(active) = %d, want 2", len(active))
	}
	for _, a := range active {
		if !a.IsActive {
			t.Errorf("inactive account %s returned", a.AccountID)
		}
	}
}

func TestSyncLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC()

	acct := &Account{Platform: "tiktok", AccountID: "a1", IsActive: true}
	if err := store.Put(ctx, acct); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if err := store.BeginSync(ctx, "tiktok", "a1", now); err != nil {
		t.Fatalf("BeginSync() error = %v", err)
	}
	got, _ := store.Get(ctx, "tiktok", "a1")
	if got.SyncStatus != SyncSyncing {
		t.Errorf("SyncStatus = %q, want %q", got.SyncStatus, SyncSyncing)
	}
	if got.LastSyncStarted == nil || !got.LastSyncStarted.Equal(now.Truncate(time.Second)) {
		t.Errorf("LastSyncStarted = %v, want %v", got.LastSyncStarted, now.Truncate(time.Second))
	}

	got.TotalVideos = 5
	got.TotalViews = 1200
	if err := store.FinishSync(ctx, got); err != nil {
		t.Fatalf("FinishSync() error = %v", err)
	}
	got, _ = store.Get(ctx, "tiktok", "a1")
	if got.SyncStatus != SyncIdle {
		t.Errorf("SyncStatus = %q, want %q", got.SyncStatus, SyncIdle)
	}
	if got.TotalVideos != 5 || got.TotalViews != 1200 {
		t.Errorf("totals = %d videos / %d views, want 5 / 1200", got.TotalVideos, got.TotalViews)
	}

	if err := store.FailSync(ctx, "tiktok", "a1", "provider exploded"); err != nil {
		t.Fatalf("FailSync() error = %v", err)
	}
	got, _ = store.Get(ctx, "tiktok", "a1")
	if got.SyncStatus != SyncError {
		t.Errorf("SyncStatus = %q, want %q", got.SyncStatus, SyncError)
	}
	if got.LastSyncError != "provider exploded" {
		t.Errorf("LastSyncError = %q", got.LastSyncError)
	}
}

func TestStuckSyncingBoundary(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	threshold := 10 * time.Minute

	seed := func(id string, status SyncStatus, started time.Time) {
		t.Helper()
		acct := &Account{Platform: "tiktok", AccountID: id, IsActive: true, SyncStatus: status}
		acct.LastSyncStarted = &started
		if err := store.Put(ctx, acct); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	seed("stale-syncing", SyncSyncing, now.Add(-threshold-time.Second))
	seed("stale-pending", SyncPending, now.Add(-threshold-time.Minute))
	seed("boundary", SyncSyncing, now.Add(-threshold))
	seed("fresh", SyncSyncing, now.Add(-time.Minute))
	seed("idle", SyncIdle, now.Add(-time.Hour))

	stuck, err := store.StuckSyncing(ctx, threshold, now)
	if err != nil {
		t.Fatalf("StuckSyncing() error = %v", err)
	}
	found := make(map[string]bool, len(stuck))
	for _, a := range stuck {
		found[a.AccountID] = true
	}
	if len(stuck) != 2 || !found["stale-syncing"] || !found["stale-pending"] {
		t.Fatalf("stuck = %v, want stale-syncing and stale-pending only", found)
	}

	for _, a := range stuck {
		if err := store.ResetStuck(ctx, a, "sync timed out"); err != nil {
			t.Fatalf("ResetStuck(%s) error = %v", a.AccountID, err)
		}
	}
	got, _ := store.Get(ctx, "tiktok", "stale-syncing")
	if got.SyncStatus != SyncIdle {
		t.Errorf("SyncStatus = %q, want %q", got.SyncStatus, SyncIdle)
	}
	if got.LastSyncError != "sync timed out" {
		t.Errorf("LastSyncError = %q", got.LastSyncError)
	}
}
