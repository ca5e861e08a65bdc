// Package reaper periodically detects and resets work stuck past its
// timeout threshold. It is the sole recovery mechanism for crashed or
// hung in-flight syncs; it never re-runs the underlying job, it only
// makes the resource eligible for a fresh sync.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/videostore"
)

// Default timeout thresholds. A resource is reset only when its sync has
// been in flight strictly longer than the threshold.
const (
	DefaultVideoTimeout   = 5 * time.Minute
	DefaultAccountTimeout = 10 * time.Minute
	DefaultInterval       = time.Minute
	DefaultSweepInterval  = time.Minute
)

// Config tunes the reaper's thresholds and periods.
type Config struct {
	VideoTimeout   time.Duration
	AccountTimeout time.Duration
	Interval       time.Duration

	// SweepInterval paces the queue worker sweep independently of the
	// stuck-work reaping.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.VideoTimeout <= 0 {
		c.VideoTimeout = DefaultVideoTimeout
	}
	if c.AccountTimeout <= 0 {
		c.AccountTimeout = DefaultAccountTimeout
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// Reaper runs the periodic stuck-work sweeps and the queue worker sweep.
type Reaper struct {
	accounts   *accounts.Store
	engine     *videostore.Engine
	dispatcher *jobs.Dispatcher
	cfg        Config
	logger     *slog.Logger

	cron *cron.Cron
	now  func() time.Time
}

// New creates a reaper. dispatcher may be nil to disable the worker
// sweep.
func New(acct *accounts.Store, engine *videostore.Engine, dispatcher *jobs.Dispatcher, cfg Config, logger *slog.Logger) *Reaper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reaper{
		accounts:   acct,
		engine:     engine,
		dispatcher: dispatcher,
		cfg:        cfg.withDefaults(),
		logger:     logger.With("component", "reaper"),
		now:        time.Now,
	}
}

// Start schedules the periodic sweeps and begins running them. The
// stuck-work reaping and the queue worker sweep run on separate
// schedules.
func (r *Reaper) Start(ctx context.Context) error {
	if r.cron != nil {
		return nil
	}
	r.cron = cron.New()
	reapSpec := fmt.Sprintf("@every %s", r.cfg.Interval)
	if _, err := r.cron.AddFunc(reapSpec, func() { r.ReapOnce(ctx) }); err != nil {
		return fmt.Errorf("scheduling reaper: %w", err)
	}
	if r.dispatcher != nil {
		sweepSpec := fmt.Sprintf("@every %s", r.cfg.SweepInterval)
		if _, err := r.cron.AddFunc(sweepSpec, func() { r.SweepQueue(ctx) }); err != nil {
			return fmt.Errorf("scheduling queue sweep: %w", err)
		}
	}
	r.cron.Start()
	r.logger.Info("reaper started",
		"interval", r.cfg.Interval,
		"sweep_interval", r.cfg.SweepInterval,
		"video_timeout", r.cfg.VideoTimeout,
		"account_timeout", r.cfg.AccountTimeout)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (r *Reaper) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

// RunOnce executes all sweeps a single time.
func (r *Reaper) RunOnce(ctx context.Context) {
	r.ReapOnce(ctx)
	r.SweepQueue(ctx)
}

// ReapOnce executes the stuck-work sweeps a single time.
func (r *Reaper) ReapOnce(ctx context.Context) {
	now := r.now().UTC()
	if _, err := r.SweepVideos(ctx, now); err != nil {
		r.logger.Warn("video sweep failed", "error", err)
	}
	if _, err := r.SweepAccounts(ctx, now); err != nil {
		r.logger.Warn("account sweep failed", "error", err)
	}
}

// SweepQueue dispatches pending jobs through the queue worker.
func (r *Reaper) SweepQueue(ctx context.Context) {
	if r.dispatcher == nil {
		return
	}
	if _, err := r.dispatcher.Sweep(ctx); err != nil {
		r.logger.Warn("worker sweep failed", "error", err)
	}
}

// SweepVideos resets videos stuck in processing past the video timeout.
func (r *Reaper) SweepVideos(ctx context.Context, now time.Time) (int, error) {
	return r.engine.ResetStuck(ctx, r.cfg.VideoTimeout, now)
}

// SweepAccounts releases accounts whose sync has been in flight past the
// account timeout.
func (r *Reaper) SweepAccounts(ctx context.Context, now time.Time) (int, error) {
	stuck, err := r.accounts.StuckSyncing(ctx, r.cfg.AccountTimeout, now)
	if err != nil {
		return 0, err
	}
	reset := 0
	for _, a := range stuck {
		msg := fmt.Sprintf("sync timed out after %s", r.cfg.AccountTimeout)
		if err := r.accounts.ResetStuck(ctx, a, msg); err != nil {
			r.logger.Warn("failed to reset stuck account", "key", a.Key(), "error", err)
			continue
		}
		reset++
	}
	if reset > 0 {
		r.logger.Info("released stuck accounts", "count", reset)
	}
	return reset, nil
}
