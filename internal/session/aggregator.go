package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/docstore"
	"github.com/creatorpulse/pulse/internal/notify"
)

// Aggregator tracks per-session progress. Caller contract: each account's
// completion is reported exactly once per session by its owning sync run.
// The aggregator does not deduplicate repeated reports for one account.
type Aggregator struct {
	db       docstore.Store
	notifier notify.Notifier
	logger   *slog.Logger

	now func() time.Time
}

// NewAggregator creates a session aggregator. notifier may be nil.
func NewAggregator(db docstore.Store, notifier notify.Notifier, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		db:       db,
		notifier: notifier,
		logger:   logger.With("component", "session"),
		now:      time.Now,
	}
}

// Create starts tracking a refresh batch across totalAccounts accounts.
func (a *Aggregator) Create(ctx context.Context, orgID, projectID string, totalAccounts int64) (*Session, error) {
	s := &Session{
		ID:            uuid.NewString(),
		OrgID:         orgID,
		ProjectID:     projectID,
		TotalAccounts: totalAccounts,
		Status:        StatusInProgress,
		CreatedAt:     a.now().UTC(),
	}
	if err := a.db.Set(ctx, Collection, s.ID, s.toDoc()); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	a.logger.Info("created refresh session", "session_id", s.ID, "accounts", totalAccounts)
	return s, nil
}

// Get returns one session by id.
func (a *Aggregator) Get(ctx context.Context, sessionID string) (*Session, error) {
	doc, err := a.db.Get(ctx, Collection, sessionID)
	if err != nil {
		return nil, err
	}
	return fromDoc(doc), nil
}

// AccountStats returns the per-account contributions reported so far.
func (a *Aggregator) AccountStats(ctx context.Context, sessionID string) ([]*AccountStats, error) {
	docs, err := a.db.Query(ctx, StatsCollection, docstore.Filter{"sessionId": sessionID})
	if err != nil {
		return nil, fmt.Errorf("querying session stats: %w", err)
	}
	stats := make([]*AccountStats, 0, len(docs))
	for _, doc := range docs {
		stats = append(stats, statsFromDoc(doc))
	}
	return stats, nil
}

// UpdateProgress records one account's completion: its stat entry, the
// session's aggregate sums, and the completed-accounts counter. The caller
// whose increment brings completedAccounts to totalAccounts is the last
// one out; it alone marks the session completed and fires the summary
// notification.
func (a *Aggregator) UpdateProgress(ctx context.Context, sessionID string, acct *accounts.Account, saved int64) error {
	stats := &AccountStats{
		SessionID: sessionID,
		AccountID: acct.AccountID,
		Saved:     saved,
		Views:     acct.TotalViews,
		Likes:     acct.TotalLikes,
		Comments:  acct.TotalComments,
		Shares:    acct.TotalShares,
		Reported:  a.now().UTC(),
	}
	key := StatsKey(sessionID, acct.AccountID)
	if err := a.db.Set(ctx, StatsCollection, key, stats.toDoc()); err != nil {
		return fmt.Errorf("writing session stats %s: %w", key, err)
	}

	increments := map[string]int64{
		"totalVideos":   saved,
		"totalViews":    acct.TotalViews,
		"totalLikes":    acct.TotalLikes,
		"totalComments": acct.TotalComments,
		"totalShares":   acct.TotalShares,
	}
	for field, delta := range increments {
		if delta == 0 {
			continue
		}
		if _, err := a.db.Increment(ctx, Collection, sessionID, field, delta); err != nil {
			return fmt.Errorf("incrementing session %s %s: %w", sessionID, field, err)
		}
	}

	completed, err := a.db.Increment(ctx, Collection, sessionID, "completedAccounts", 1)
	if err != nil {
		return fmt.Errorf("incrementing completed accounts: %w", err)
	}

	s, err := a.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reading session %s: %w", sessionID, err)
	}

	// The atomic increment's return value decides the winner. Only the
	// call that lands exactly on totalAccounts completes the session.
	if completed != s.TotalAccounts {
		return nil
	}
	return a.complete(ctx, s)
}

func (a *Aggregator) complete(ctx context.Context, s *Session) error {
	now := a.now().UTC()
	err := a.db.Update(ctx, Collection, s.ID, docstore.Document{
		"status":      StatusCompleted,
		"completedAt": docstore.FormatTime(now),
	})
	if err != nil {
		return fmt.Errorf("marking session %s completed: %w", s.ID, err)
	}
	a.logger.Info("session completed", "session_id", s.ID, "accounts", s.TotalAccounts)

	if a.notifier == nil || s.EmailSent {
		return nil
	}
	summary := notify.Summary{
		SessionID:         s.ID,
		OrgID:             s.OrgID,
		ProjectID:         s.ProjectID,
		TotalAccounts:     s.TotalAccounts,
		CompletedAccounts: s.TotalAccounts,
		TotalVideos:       s.TotalVideos,
		TotalViews:        s.TotalViews,
		TotalLikes:        s.TotalLikes,
		TotalComments:     s.TotalComments,
		TotalShares:       s.TotalShares,
	}
	if err := a.notifier.SessionCompleted(ctx, summary); err != nil {
		// Notification failure never re-opens the session.
		a.logger.Warn("session notification failed", "session_id", s.ID, "error", err)
		return nil
	}
	if err := a.db.Update(ctx, Collection, s.ID, docstore.Document{"emailSent": true}); err != nil {
		a.logger.Warn("failed to record notification flag", "session_id", s.ID, "error", err)
	}
	return nil
}
