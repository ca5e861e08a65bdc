package videostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/media"
	"github.com/creatorpulse/pulse/internal/scrape"
)

// MaxBatchSize is the number of videos written per batch commit. Each
// video carries one snapshot write alongside it, so a full chunk stays
// within the store's per-batch operation ceiling.
const MaxBatchSize = 500

// SaveOptions carries run-scoped context for a batch of video writes.
type SaveOptions struct {
	OrgID     string
	ProjectID string

	// CapturedBy tags the snapshots created by this run. Initial
	// snapshots for newly discovered videos are tagged initial_sync
	// regardless.
	CapturedBy CaptureSource
}

// SaveStats summarizes one SaveVideos run.
type SaveStats struct {
	VideosAdded      int `json:"videosAdded"`
	VideosUpdated    int `json:"videosUpdated"`
	SnapshotsCreated int `json:"snapshotsCreated"`
	Saved            int `json:"saved"`
}

// Engine writes videos and snapshots through chunked atomic batches.
type Engine struct {
	db       docstore.Store
	rehoster *media.Rehoster
	logger   *slog.Logger

	now func() time.Time
}

// NewEngine creates a video storage engine. rehoster may be nil, in which
// case thumbnails keep their remote URLs.
func NewEngine(db docstore.Store, rehoster *media.Rehoster, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		db:       db,
		rehoster: rehoster,
		logger:   logger.With("component", "videostore"),
		now:      time.Now,
	}
}

// SaveVideos persists a run's metric records. Existing videos are updated,
// new ones created, and one snapshot is appended per observation. Records
// marked metrics-only never create videos and never touch title, media or
// upload date; thumbnails are re-resolved on every update. All writes flow
// through batches committed every MaxBatchSize videos, with a final
// partial chunk after the loop.
func (e *Engine) SaveVideos(ctx context.Context, videos []scrape.RawVideo, opts SaveOptions) (SaveStats, error) {
	var stats SaveStats
	capturedBy := opts.CapturedBy
	if capturedBy == "" {
		capturedBy = CaptureManualRefresh
	}

	batch := e.db.Batch()
	chunk := 0

	for _, raw := range videos {
		if raw.ProviderVideoID == "" {
			e.logger.Warn("skipping record without provider video id",
				"platform", raw.Platform, "account_id", raw.AccountID)
			continue
		}

		key := DocKey(raw.Platform, raw.AccountID, raw.ProviderVideoID)
		existing, err := e.Get(ctx, key)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return stats, fmt.Errorf("looking up video %s: %w", key, err)
		}

		now := e.now().UTC()
		switch {
		case existing == nil && raw.MetricsOnly:
			// The video was presumably deleted upstream; a metrics-only
			// record must not resurrect it.
			e.logger.Debug("dropping metrics-only record for unknown video", "key", key)
			continue

		case existing == nil:
			v := e.newVideo(ctx, raw, opts, now)
			batch.Set(Collection, key, v.Doc())
			snap := newSnapshot(key, raw.Views, raw.Likes, raw.Comments, raw.Shares, CaptureInitialSync, true, now)
			batch.Set(SnapshotCollection, snap.ID, snap.toDoc())
			stats.VideosAdded++
			stats.SnapshotsCreated++

		default:
			fields := docstore.Document{
				"views":         raw.Views,
				"likes":         raw.Likes,
				"comments":      raw.Comments,
				"shares":        raw.Shares,
				"status":        StatusActive,
				"syncStatus":    "",
				"syncError":     "",
				"lastRefreshed": docstore.FormatTime(now),
			}
			// Thumbnails refresh on every observation; the rest of the
			// descriptive fields only change on discovery writes.
			if thumb := e.resolveThumbnail(ctx, raw); thumb != "" {
				fields["thumbnailUrl"] = thumb
			}
			if !raw.MetricsOnly {
				e.descriptiveFields(raw, fields)
			}
			batch.Update(Collection, key, fields)
			snap := newSnapshot(key, raw.Views, raw.Likes, raw.Comments, raw.Shares, capturedBy, false, now)
			batch.Set(SnapshotCollection, snap.ID, snap.toDoc())
			stats.VideosUpdated++
			stats.SnapshotsCreated++
		}

		stats.Saved++
		chunk++
		if chunk >= MaxBatchSize {
			if err := batch.Commit(ctx); err != nil {
				return stats, fmt.Errorf("committing video batch: %w", err)
			}
			batch = e.db.Batch()
			chunk = 0
		}
	}

	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return stats, fmt.Errorf("committing final video batch: %w", err)
		}
	}

	e.logger.Info("saved videos",
		"added", stats.VideosAdded,
		"updated", stats.VideosUpdated,
		"snapshots", stats.SnapshotsCreated)
	return stats, nil
}

func (e *Engine) newVideo(ctx context.Context, raw scrape.RawVideo, opts SaveOptions, now time.Time) *Video {
	return &Video{
		Platform:        raw.Platform,
		AccountID:       raw.AccountID,
		ProviderVideoID: raw.ProviderVideoID,
		OrgID:           opts.OrgID,
		ProjectID:       opts.ProjectID,
		Title:           raw.Title,
		URL:             raw.URL,
		MediaURL:        raw.MediaURL,
		ThumbnailURL:    e.resolveThumbnail(ctx, raw),
		UploadedAt:      raw.UploadedAt,
		Views:           raw.Views,
		Likes:           raw.Likes,
		Comments:        raw.Comments,
		Shares:          raw.Shares,
		Status:          StatusActive,
		DateAdded:       now,
		LastRefreshed:   now,
	}
}

// descriptiveFields adds title, media and upload-date updates to a field
// merge. Only called for discovery writes.
func (e *Engine) descriptiveFields(raw scrape.RawVideo, fields docstore.Document) {
	if raw.Title != "" {
		fields["title"] = raw.Title
	}
	if raw.URL != "" {
		fields["url"] = raw.URL
	}
	if raw.MediaURL != "" {
		fields["mediaUrl"] = raw.MediaURL
	}
	if raw.UploadedAt != nil {
		fields["uploadedAt"] = docstore.FormatTime(*raw.UploadedAt)
	}
}

// resolveThumbnail re-hosts a remote thumbnail, falling back to the
// remote URL when re-hosting fails.
func (e *Engine) resolveThumbnail(ctx context.Context, raw scrape.RawVideo) string {
	if raw.ThumbnailURL == "" || e.rehoster == nil {
		return raw.ThumbnailURL
	}
	key := DocKey(raw.Platform, raw.AccountID, raw.ProviderVideoID)
	url, err := e.rehoster.Resolve(ctx, raw.ThumbnailURL, key)
	if err != nil {
		e.logger.Warn("thumbnail re-host failed, keeping remote URL",
			"key", key, "error", err)
	}
	return url
}

// Get returns one video by storage key.
func (e *Engine) Get(ctx context.Context, key string) (*Video, error) {
	doc, err := e.db.Get(ctx, Collection, key)
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

// ListByAccount returns all videos tracked for one account.
func (e *Engine) ListByAccount(ctx context.Context, platform, accountID string) ([]*Video, error) {
	docs, err := e.db.Query(ctx, Collection, docstore.Filter{
		"platform":  platform,
		"accountId": accountID,
	})
	if err != nil {
		return nil, fmt.Errorf("querying videos for %s:%s: %w", platform, accountID, err)
	}
	videos := make([]*Video, 0, len(docs))
	for _, doc := range docs {
		videos = append(videos, fromDoc(doc))
	}
	return videos, nil
}

// Snapshots returns the metric history for one video.
func (e *Engine) Snapshots(ctx context.Context, videoKey string) ([]*Snapshot, error) {
	docs, err := e.db.Query(ctx, SnapshotCollection, docstore.Filter{"videoKey": videoKey})
	if err != nil {
		return nil, fmt.Errorf("querying snapshots for %s: %w", videoKey, err)
	}
	snaps := make([]*Snapshot, 0, len(docs))
	for _, doc := range docs {
		snaps = append(snaps, snapshotFromDoc(doc))
	}
	return snaps, nil
}

// MarkProcessing flags a video as having an in-flight refresh.
func (e *Engine) MarkProcessing(ctx context.Context, key string) error {
	return e.db.Update(ctx, Collection, key, docstore.Document{
		"status":          StatusProcessing,
		"syncRequestedAt": docstore.FormatTime(e.now()),
	})
}

// StuckProcessing returns videos whose refresh was requested strictly
// earlier than olderThan before now.
func (e *Engine) StuckProcessing(ctx context.Context, olderThan time.Duration, now time.Time) ([]*Video, error) {
	docs, err := e.db.Query(ctx, Collection, docstore.Filter{"status": StatusProcessing})
	if err != nil {
		return nil, fmt.Errorf("querying processing videos: %w", err)
	}
	var stuck []*Video
	for _, doc := range docs {
		v := fromDoc(doc)
		if v.SyncRequestedAt == nil {
			continue
		}
		if now.Sub(*v.SyncRequestedAt) > olderThan {
			stuck = append(stuck, v)
		}
	}
	return stuck, nil
}

// ResetStuck forces stuck processing videos back to active with an
// explanatory error. Returns the number of videos reset.
func (e *Engine) ResetStuck(ctx context.Context, olderThan time.Duration, now time.Time) (int, error) {
	stuck, err := e.StuckProcessing(ctx, olderThan, now)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, v := range stuck {
		err := e.db.Update(ctx, Collection, v.Key(), docstore.Document{
			"status":     StatusActive,
			"syncStatus": "error",
			"syncError":  fmt.Sprintf("sync timed out after %s", olderThan),
		})
		if err != nil {
			e.logger.Warn("failed to reset stuck video", "key", v.Key(), "error", err)
			continue
		}
		reset++
	}
	if reset > 0 {
		e.logger.Info("reset stuck videos", "count", reset, "older_than", olderThan)
	}
	return reset, nil
}
