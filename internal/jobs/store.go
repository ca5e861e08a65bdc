package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// ErrInvalidTransition is returned for a backward status change.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store handles job record CRUD. It does not execute jobs; the Dispatcher
// drives execution and reports status back through the store.
type Store struct {
	db     docstore.Store
	logger *slog.Logger

	now func() time.Time
}

// NewStore creates a job store.
func NewStore(db docstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "jobs"),
		now:    time.Now,
	}
}

// Create persists a new pending job and returns it with its id assigned.
func (s *Store) Create(ctx context.Context, job *Job) (*Job, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.Status = StatusPending
	job.CreatedAt = s.now().UTC()
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = 3
	}
	if err := s.db.Set(ctx, Collection, job.ID, job.toDoc()); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	s.logger.Info("job created", "id", job.ID, "type", job.Type, "priority", job.Priority)
	return job, nil
}

// Get returns a job by id, or docstore.ErrNotFound.
func (s *Store) Get(ctx context.Context, jobID string) (*Job, error) {
	doc, err := s.db.Get(ctx, Collection, jobID)
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

// ListByStatus returns all jobs with the given status.
func (s *Store) ListByStatus(ctx context.Context, status Status) ([]*Job, error) {
	docs, err := s.db.Query(ctx, Collection, docstore.Filter{"status": string(status)})
	if err != nil {
		return nil, fmt.Errorf("listing %s jobs: %w", status, err)
	}
	jobs := make([]*Job, 0, len(docs))
	for _, doc := range docs {
		jobs = append(jobs, fromDoc(doc))
	}
	return jobs, nil
}

// CountRunning returns the number of jobs currently running.
func (s *Store) CountRunning(ctx context.Context) (int, error) {
	running, err := s.ListByStatus(ctx, StatusRunning)
	if err != nil {
		return 0, err
	}
	return len(running), nil
}

// Delete removes a job record. Used when a job's target disappeared
// before it ran.
func (s *Store) Delete(ctx context.Context, jobID string) error {
	if err := s.db.Delete(ctx, Collection, jobID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("deleting job %s: %w", jobID, err)
	}
	return nil
}

// MarkRunning transitions a job to running and counts the attempt.
func (s *Store) MarkRunning(ctx context.Context, job *Job) error {
	if !job.Status.CanTransition(StatusRunning) {
		return fmt.Errorf("%w: %s -> running", ErrInvalidTransition, job.Status)
	}
	now := s.now().UTC()
	job.Status = StatusRunning
	job.StartedAt = &now
	job.Attempts++
	return s.update(ctx, job.ID, docstore.Document{
		"status":    string(StatusRunning),
		"startedAt": docstore.FormatTime(now),
		"attempts":  int64(job.Attempts),
	})
}

// MarkCompleted transitions a job to its successful terminal state.
func (s *Store) MarkCompleted(ctx context.Context, job *Job) error {
	return s.finish(ctx, job, StatusCompleted, "")
}

// MarkFailed transitions a job to failed, recording the error.
func (s *Store) MarkFailed(ctx context.Context, job *Job, errMsg string) error {
	return s.finish(ctx, job, StatusFailed, errMsg)
}

func (s *Store) finish(ctx context.Context, job *Job, status Status, errMsg string) error {
	if !job.Status.CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, status)
	}
	now := s.now().UTC()
	job.Status = status
	job.CompletedAt = &now
	job.Error = errMsg
	return s.update(ctx, job.ID, docstore.Document{
		"status":      string(status),
		"completedAt": docstore.FormatTime(now),
		"error":       errMsg,
	})
}

// update applies a field merge. A missing record is tolerated with a
// warning: the job's target may have been deleted while it ran, taking
// the job record with it.
func (s *Store) update(ctx context.Context, jobID string, fields docstore.Document) error {
	err := s.db.Update(ctx, Collection, jobID, fields)
	if errors.Is(err, docstore.ErrNotFound) {
		s.logger.Warn("job record vanished during update", "id", jobID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating job %s: %w", jobID, err)
	}
	return nil
}
