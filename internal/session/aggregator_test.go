package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/notify"
)

func testAccount(id string, views int64) *accounts.Account {
	return &accounts.Account{
		Platform:   "tiktok",
		AccountID:  id,
		TotalViews: views,
		TotalLikes: views / 10,
	}
}

func TestUpdateProgressAggregates(t *testing.T) {
	db := docstore.NewMemoryStore()
	notifier := &notify.CountingNotifier{}
	agg := NewAggregator(db, notifier, nil)
	ctx := context.Background()

	s, err := agg.Create(ctx, "org1", "proj1", 2)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := agg.UpdateProgress(ctx, s.ID, testAccount("a1", 1000), 12); err != nil {
		t.Fatalf("first UpdateProgress failed: %v", err)
	}

	mid, err := agg.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if mid.Status != StatusInProgress {
		t.Errorf("session completed after 1 of 2 accounts")
	}
	if mid.CompletedAccounts != 1 || mid.TotalViews != 1000 || mid.TotalVideos != 12 {
		t.Errorf("unexpected mid-session state: %+v", mid)
	}
	if notifier.Calls() != 0 {
		t.Errorf("notification fired before completion")
	}

	if err := agg.UpdateProgress(ctx, s.ID, testAccount("a2", 500), 3); err != nil {
		t.Fatalf("second UpdateProgress failed: %v", err)
	}

	final, _ := agg.Get(ctx, s.ID)
	if final.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", final.Status)
	}
	if final.CompletedAccounts != 2 || final.TotalViews != 1500 || final.TotalVideos != 15 {
		t.Errorf("unexpected final state: %+v", final)
	}
	if !final.EmailSent {
		t.Error("expected emailSent after notification")
	}
	if final.Completed == nil {
		t.Error("expected completedAt set")
	}
	if notifier.Calls() != 1 {
		t.Errorf("expected exactly one notification, got %d", notifier.Calls())
	}

	stats, err := agg.AccountStats(ctx, s.ID)
	if err != nil {
		t.Fatalf("AccountStats failed: %v", err)
	}
	if len(stats) != 2 {
		t.Errorf("expected 2 stat entries, got %d", len(stats))
	}
}

func TestExactlyOnceCompletionUnderConcurrency(t *testing.T) {
	const n = 25
	db := docstore.NewMemoryStore()
	notifier := &notify.CountingNotifier{}
	agg := NewAggregator(db, notifier, nil)
	ctx := context.Background()

	s, err := agg.Create(ctx, "org1", "proj1", n)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acct := testAccount(fmt.Sprintf("acc%02d", i), 100)
			errs <- agg.UpdateProgress(ctx, s.ID, acct, 1)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("UpdateProgress failed: %v", err)
		}
	}

	final, _ := agg.Get(ctx, s.ID)
	if final.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", final.Status)
	}
	if final.CompletedAccounts != n {
		t.Errorf("expected %d completed accounts, got %d", n, final.CompletedAccounts)
	}
	if final.TotalViews != n*100 {
		t.Errorf("expected %d total views, got %d", n*100, final.TotalViews)
	}
	if got := notifier.Calls(); got != 1 {
		t.Errorf("expected exactly one notification regardless of arrival order, got %d", got)
	}

	summary := notifier.Last()
	if summary == nil || summary.SessionID != s.ID {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.CompletedAccounts != n {
		t.Errorf("summary reports %d accounts, want %d", summary.CompletedAccounts, n)
	}
}

func TestGetMissingSession(t *testing.T) {
	db := docstore.NewMemoryStore()
	agg := NewAggregator(db, nil, nil)

	if _, err := agg.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}
