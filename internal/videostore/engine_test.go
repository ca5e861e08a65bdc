package videostore

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/media"
	"github.com/creatorpulse/pulse/internal/scrape"
)

func newTestEngine() (*Engine, *docstore.MemoryStore) {
	db := docstore.NewMemoryStore()
	return NewEngine(db, nil, nil), db
}

func rawVideo(id string, views int64) scrape.RawVideo {
	return scrape.RawVideo{
		Platform:        "tiktok",
		AccountID:       "acc1",
		ProviderVideoID: id,
		Title:           "title " + id,
		URL:             "https://tiktok.com/v/" + id,
		Views:           views,
		Likes:           views / 10,
	}
}

func TestSaveVideos_IdempotentIdentity(t *testing.T) {
	e, db := newTestEngine()
	ctx := context.Background()

	stats, err := e.SaveVideos(ctx, []scrape.RawVideo{rawVideo("v1", 100)}, SaveOptions{OrgID: "org1"})
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if stats.VideosAdded != 1 || stats.Saved != 1 {
		t.Errorf("unexpected first stats: %+v", stats)
	}

	stats, err = e.SaveVideos(ctx, []scrape.RawVideo{rawVideo("v1", 250)}, SaveOptions{OrgID: "org1"})
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if stats.VideosAdded != 0 || stats.VideosUpdated != 1 {
		t.Errorf("second save should update, not add: %+v", stats)
	}

	docs, err := db.Query(ctx, Collection, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected exactly one video record, got %d", len(docs))
	}

	v, err := e.Get(ctx, DocKey("tiktok", "acc1", "v1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v.Views != 250 {
		t.Errorf("expected views 250 after refresh, got %d", v.Views)
	}

	snaps, err := e.Snapshots(ctx, v.Key())
	if err != nil {
		t.Fatalf("snapshots failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Errorf("expected one snapshot per observation, got %d", len(snaps))
	}
	initials := 0
	for _, s := range snaps {
		if s.IsInitialSnapshot {
			initials++
			if s.CapturedBy != CaptureInitialSync {
				t.Errorf("initial snapshot capturedBy = %q", s.CapturedBy)
			}
		}
	}
	if initials != 1 {
		t.Errorf("expected exactly one initial snapshot, got %d", initials)
	}
}

func TestSaveVideos_RefreshOnlyNeverCreates(t *testing.T) {
	e, db := newTestEngine()
	ctx := context.Background()

	raw := rawVideo("ghost", 50)
	raw.MetricsOnly = true

	stats, err := e.SaveVideos(ctx, []scrape.RawVideo{raw}, SaveOptions{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if stats.VideosAdded != 0 || stats.Saved != 0 || stats.SnapshotsCreated != 0 {
		t.Errorf("metrics-only record for unknown video should be dropped: %+v", stats)
	}

	docs, _ := db.Query(ctx, Collection, nil)
	if len(docs) != 0 {
		t.Errorf("expected no video records, got %d", len(docs))
	}
}

func TestSaveVideos_RefreshOnlyProtectsDescriptiveFields(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	uploaded := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	orig := rawVideo("v1", 100)
	orig.UploadedAt = &uploaded
	orig.MediaURL = "https://cdn.example.com/v1.mp4"
	if _, err := e.SaveVideos(ctx, []scrape.RawVideo{orig}, SaveOptions{}); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	refresh := scrape.RawVideo{
		Platform:        "tiktok",
		AccountID:       "acc1",
		ProviderVideoID: "v1",
		Title:           "hijacked title",
		MediaURL:        "https://evil.example.com/other.mp4",
		UploadedAt:      &later,
		Views:           900,
		MetricsOnly:     true,
	}
	stats, err := e.SaveVideos(ctx, []scrape.RawVideo{refresh}, SaveOptions{CapturedBy: CaptureScheduledRefresh})
	if err != nil {
		t.Fatalf("refresh save failed: %v", err)
	}
	if stats.VideosUpdated != 1 {
		t.Errorf("expected one update: %+v", stats)
	}

	v, err := e.Get(ctx, DocKey("tiktok", "acc1", "v1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v.Views != 900 {
		t.Errorf("metrics should refresh, got views %d", v.Views)
	}
	if v.Title != "title v1" {
		t.Errorf("refresh-only write changed title to %q", v.Title)
	}
	if v.MediaURL != "https://cdn.example.com/v1.mp4" {
		t.Errorf("refresh-only write changed media URL to %q", v.MediaURL)
	}
	if v.UploadedAt == nil || !v.UploadedAt.Equal(uploaded) {
		t.Errorf("refresh-only write changed upload date to %v", v.UploadedAt)
	}
}

func TestSaveVideos_RefreshOnlyUpdatesThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	objects := media.NewMemoryObjectStore("https://media.creatorpulse.io/")
	db := docstore.NewMemoryStore()
	e := NewEngine(db, media.NewRehoster(objects, nil), nil)
	ctx := context.Background()

	// Discovered without a thumbnail, as some providers deliver.
	orig := rawVideo("v1", 100)
	if _, err := e.SaveVideos(ctx, []scrape.RawVideo{orig}, SaveOptions{}); err != nil {
		t.Fatalf("initial save failed: %v", err)
	}

	refresh := scrape.RawVideo{
		Platform:        "tiktok",
		AccountID:       "acc1",
		ProviderVideoID: "v1",
		Title:           "hijacked title",
		ThumbnailURL:    srv.URL + "/thumbs/v1.jpg",
		Views:           900,
		MetricsOnly:     true,
	}
	if _, err := e.SaveVideos(ctx, []scrape.RawVideo{refresh}, SaveOptions{CapturedBy: CaptureScheduledRefresh}); err != nil {
		t.Fatalf("refresh save failed: %v", err)
	}

	v, err := e.Get(ctx, DocKey("tiktok", "acc1", "v1"))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !strings.HasPrefix(v.ThumbnailURL, "https://media.creatorpulse.io/") {
		t.Errorf("refresh-only write should re-host the thumbnail, got %q", v.ThumbnailURL)
	}
	if v.Title != "title v1" {
		t.Errorf("refresh-only write changed title to %q", v.Title)
	}
}

func TestSaveVideos_ChunkedCommits(t *testing.T) {
	e, db := newTestEngine()
	ctx := context.Background()

	videos := make([]scrape.RawVideo, 1200)
	for i := range videos {
		videos[i] = rawVideo(fmt.Sprintf("v%04d", i), int64(i))
	}

	stats, err := e.SaveVideos(ctx, videos, SaveOptions{})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if stats.VideosAdded != 1200 || stats.SnapshotsCreated != 1200 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if got := db.BatchCommits(); got != 3 {
		t.Errorf("expected 3 batch commits for 1200 videos, got %d", got)
	}

	docs, err := db.Query(ctx, Collection, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(docs) != 1200 {
		t.Errorf("expected all 1200 videos persisted, got %d", len(docs))
	}
}

func TestSaveVideos_ThumbnailRehostAndFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	objects := media.NewMemoryObjectStore("https://media.creatorpulse.io/")
	rehoster := media.NewRehoster(objects, nil)
	db := docstore.NewMemoryStore()
	e := NewEngine(db, rehoster, nil)
	ctx := context.Background()

	ok := rawVideo("v1", 10)
	ok.ThumbnailURL = srv.URL + "/thumbs/v1.jpg"
	missing := rawVideo("v2", 20)
	missing.ThumbnailURL = srv.URL + "/thumbs/missing.jpg"

	if _, err := e.SaveVideos(ctx, []scrape.RawVideo{ok, missing}, SaveOptions{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	v1, _ := e.Get(ctx, DocKey("tiktok", "acc1", "v1"))
	if !strings.HasPrefix(v1.ThumbnailURL, "https://media.creatorpulse.io/") {
		t.Errorf("expected re-hosted thumbnail, got %q", v1.ThumbnailURL)
	}

	v2, _ := e.Get(ctx, DocKey("tiktok", "acc1", "v2"))
	if v2.ThumbnailURL != missing.ThumbnailURL {
		t.Errorf("expected remote URL fallback, got %q", v2.ThumbnailURL)
	}
}

func TestStuckProcessingBoundary(t *testing.T) {
	e, db := newTestEngine()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	put := func(id string, requestedAt time.Time) {
		v := &Video{
			Platform:        "tiktok",
			AccountID:       "acc1",
			ProviderVideoID: id,
			Status:          StatusProcessing,
			SyncRequestedAt: &requestedAt,
			DateAdded:       now,
			LastRefreshed:   now,
		}
		if err := db.Set(ctx, Collection, v.Key(), v.Doc()); err != nil {
			t.Fatalf("seeding video failed: %v", err)
		}
	}

	put("stale", now.Add(-5*time.Minute-time.Second))
	put("fresh", now.Add(-4*time.Minute-59*time.Second))

	stuck, err := e.StuckProcessing(ctx, 5*time.Minute, now)
	if err != nil {
		t.Fatalf("StuckProcessing failed: %v", err)
	}
	if len(stuck) != 1 || stuck[0].ProviderVideoID != "stale" {
		t.Fatalf("expected only the stale video, got %+v", stuck)
	}

	reset, err := e.ResetStuck(ctx, 5*time.Minute, now)
	if err != nil {
		t.Fatalf("ResetStuck failed: %v", err)
	}
	if reset != 1 {
		t.Errorf("expected 1 reset, got %d", reset)
	}

	v, _ := e.Get(ctx, DocKey("tiktok", "acc1", "stale"))
	if v.Status != StatusActive || v.SyncStatus != "error" || v.SyncError == "" {
		t.Errorf("stale video not reset correctly: %+v", v)
	}

	fresh, _ := e.Get(ctx, DocKey("tiktok", "acc1", "fresh"))
	if fresh.Status != StatusProcessing {
		t.Errorf("fresh video should remain processing, got %q", fresh.Status)
	}
}
