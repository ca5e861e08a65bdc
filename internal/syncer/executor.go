package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/scrape"
)

// Executor adapts the coordinator to the dispatcher's job contract.
type Executor struct {
	coord *Coordinator
}

// NewExecutor creates a job executor backed by coord.
func NewExecutor(coord *Coordinator) *Executor {
	return &Executor{coord: coord}
}

// Execute runs one job. A vanished account maps to the dispatcher's
// discard signal so the job is deleted instead of failed.
func (e *Executor) Execute(ctx context.Context, job *jobs.Job) (jobs.Result, error) {
	req := Request{
		OrgID:        job.OrgID,
		ProjectID:    job.ProjectID,
		Platform:     job.Platform,
		AccountID:    job.AccountID,
		Strategy:     scrape.ParseStrategy(job.Strategy),
		SessionID:    job.SessionID,
		IsManualSync: job.Priority >= jobs.PriorityHigh,
	}

	var (
		res Result
		err error
	)
	switch job.Type {
	case jobs.TypeAccountSync:
		res, err = e.coord.SyncAccount(ctx, req)
	case jobs.TypeSingleVideo:
		res, err = e.coord.SyncVideo(ctx, job.VideoURL, req)
	default:
		return jobs.Result{}, fmt.Errorf("unknown job type %q", job.Type)
	}

	if errors.Is(err, ErrAccountGone) {
		return jobs.Result{}, fmt.Errorf("%v: %w", err, jobs.ErrDiscard)
	}
	if err != nil {
		return jobs.Result{}, err
	}
	return jobs.Result{
		VideosAdded:      res.VideosAdded,
		VideosUpdated:    res.VideosUpdated,
		SnapshotsCreated: res.SnapshotsCreated,
		Saved:            res.Saved,
	}, nil
}
