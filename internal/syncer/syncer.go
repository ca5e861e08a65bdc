// Package syncer coordinates one sync run: account validation, provider
// fetch, normalization, storage, and the surrounding bookkeeping.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/scrape"
	"github.com/creatorpulse/pulse/internal/session"
	"github.com/creatorpulse/pulse/internal/videostore"
)

// Request describes one sync run.
type Request struct {
	OrgID     string
	ProjectID string
	Platform  string
	AccountID string

	Strategy     scrape.Strategy
	IsManualSync bool

	// SessionID links this run to a refresh session; empty for
	// standalone runs.
	SessionID string
}

// Result aggregates the counts of one sync run.
type Result struct {
	VideosAdded      int
	VideosUpdated    int
	SnapshotsCreated int
	Saved            int
	Duration         time.Duration
}

// Coordinator runs syncs against one provider registry and one store.
type Coordinator struct {
	accounts  *accounts.Store
	engine    *videostore.Engine
	providers *scrape.Registry
	sessions  *session.Aggregator
	logger    *slog.Logger

	now func() time.Time
}

// NewCoordinator creates a sync coordinator. sessions may be nil when
// session tracking is disabled.
func NewCoordinator(acct *accounts.Store, engine *videostore.Engine, providers *scrape.Registry, sessions *session.Aggregator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		accounts:  acct,
		engine:    engine,
		providers: providers,
		sessions:  sessions,
		logger:    logger.With("component", "syncer"),
		now:       time.Now,
	}
}

// SyncAccount runs one account sync per the request's strategy. A missing
// account returns ErrAccountGone so the caller discards the owning job.
// Provider and storage failures surface; bookkeeping failures are logged
// and swallowed.
func (c *Coordinator) SyncAccount(ctx context.Context, req Request) (Result, error) {
	start := c.now()
	strategy := req.Strategy
	if strategy == "" {
		strategy = scrape.StrategyProgressive
	}

	acct, err := c.accounts.Get(ctx, req.Platform, req.AccountID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			return Result{}, fmt.Errorf("%s/%s: %w", req.Platform, req.AccountID, ErrAccountGone)
		}
		return Result{}, fmt.Errorf("validating account: %w", err)
	}

	c.bestEffort("begin sync", c.accounts.BeginSync(ctx, req.Platform, req.AccountID, start))

	provider, err := c.providers.ForPlatform(req.Platform)
	if err != nil {
		c.bestEffort("fail sync", c.accounts.FailSync(ctx, req.Platform, req.AccountID, err.Error()))
		return Result{}, fmt.Errorf("selecting provider for %s: %w", req.Platform, err)
	}

	raws, err := provider.FetchAccount(ctx, scrape.AccountRequest{
		Platform:  req.Platform,
		AccountID: req.AccountID,
		Handle:    acct.Handle,
		Strategy:  strategy,
	})
	if err != nil {
		c.bestEffort("fail sync", c.accounts.FailSync(ctx, req.Platform, req.AccountID, err.Error()))
		return Result{}, fmt.Errorf("fetching account %s/%s: %w", req.Platform, req.AccountID, err)
	}

	// Refresh-only runs must never create videos even when the provider
	// forgot to tag its records.
	if strategy == scrape.StrategyRefreshOnly {
		for i := range raws {
			raws[i].MetricsOnly = true
		}
	}

	stats, err := c.engine.SaveVideos(ctx, raws, videostore.SaveOptions{
		OrgID:      req.OrgID,
		ProjectID:  req.ProjectID,
		CapturedBy: c.capturedBy(req),
	})
	if err != nil {
		c.bestEffort("fail sync", c.accounts.FailSync(ctx, req.Platform, req.AccountID, err.Error()))
		return Result{}, fmt.Errorf("saving videos for %s/%s: %w", req.Platform, req.AccountID, err)
	}

	c.refreshAccountTotals(ctx, acct)
	c.bestEffort("finish sync", c.accounts.FinishSync(ctx, acct))

	if req.SessionID != "" && c.sessions != nil {
		c.bestEffort("session progress",
			c.sessions.UpdateProgress(ctx, req.SessionID, acct, int64(stats.Saved)))
	}

	res := Result{
		VideosAdded:      stats.VideosAdded,
		VideosUpdated:    stats.VideosUpdated,
		SnapshotsCreated: stats.SnapshotsCreated,
		Saved:            stats.Saved,
		Duration:         c.now().Sub(start),
	}
	c.logger.Info("account sync completed",
		"platform", req.Platform,
		"account_id", req.AccountID,
		"strategy", string(strategy),
		"added", res.VideosAdded,
		"updated", res.VideosUpdated,
		"duration", res.Duration)
	return res, nil
}

// SyncVideo refreshes a single video by URL with discovery semantics.
func (c *Coordinator) SyncVideo(ctx context.Context, videoURL string, req Request) (Result, error) {
	start := c.now()

	provider, err := c.providers.ForPlatform(req.Platform)
	if err != nil {
		return Result{}, fmt.Errorf("selecting provider for %s: %w", req.Platform, err)
	}

	raw, err := provider.FetchVideo(ctx, videoURL)
	if err != nil {
		return Result{}, fmt.Errorf("fetching video %s: %w", videoURL, err)
	}

	key := videostore.DocKey(raw.Platform, raw.AccountID, raw.ProviderVideoID)
	c.bestEffort("mark processing", c.markProcessingIfKnown(ctx, key))

	stats, err := c.engine.SaveVideos(ctx, []scrape.RawVideo{*raw}, videostore.SaveOptions{
		OrgID:      req.OrgID,
		ProjectID:  req.ProjectID,
		CapturedBy: videostore.CaptureManualRefresh,
	})
	if err != nil {
		return Result{}, fmt.Errorf("saving video %s: %w", key, err)
	}

	res := Result{
		VideosAdded:      stats.VideosAdded,
		VideosUpdated:    stats.VideosUpdated,
		SnapshotsCreated: stats.SnapshotsCreated,
		Saved:            stats.Saved,
		Duration:         c.now().Sub(start),
	}
	c.logger.Info("video sync completed", "key", key, "duration", res.Duration)
	return res, nil
}

func (c *Coordinator) capturedBy(req Request) videostore.CaptureSource {
	if req.IsManualSync {
		return videostore.CaptureManualRefresh
	}
	return videostore.CaptureScheduledRefresh
}

// refreshAccountTotals recomputes the account's aggregate counters from
// its stored videos.
func (c *Coordinator) refreshAccountTotals(ctx context.Context, acct *accounts.Account) {
	videos, err := c.engine.ListByAccount(ctx, acct.Platform, acct.AccountID)
	if err != nil {
		c.bestEffort("account totals", err)
		return
	}
	acct.TotalVideos = int64(len(videos))
	acct.TotalViews, acct.TotalLikes, acct.TotalComments, acct.TotalShares = 0, 0, 0, 0
	for _, v := range videos {
		acct.TotalViews += v.Views
		acct.TotalLikes += v.Likes
		acct.TotalComments += v.Comments
		acct.TotalShares += v.Shares
	}
}

func (c *Coordinator) markProcessingIfKnown(ctx context.Context, key string) error {
	if _, err := c.engine.Get(ctx, key); err != nil {
		return nil
	}
	return c.engine.MarkProcessing(ctx, key)
}

// bestEffort logs a bookkeeping failure without propagating it.
func (c *Coordinator) bestEffort(op string, err error) {
	if err == nil {
		return
	}
	bkErr := &BookkeepingError{Op: op, Err: err}
	c.logger.Warn("non-critical failure", "op", op, "error", bkErr)
}
