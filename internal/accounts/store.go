package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// ErrNotFound is returned when a tracked account does not exist.
var ErrNotFound = errors.New("account not found")

// Store handles tracked account persistence.
type Store struct {
	db     docstore.Store
	logger *slog.Logger
}

// NewStore creates a new account store.
func NewStore(db docstore.Store, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Get returns the account for (platform, accountID), or ErrNotFound.
func (s *Store) Get(ctx context.Context, platform, accountID string) (*Account, error) {
	doc, err := s.db.Get(ctx, Collection, DocKey(platform, accountID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return fromDoc(doc), nil
}

// Put creates or replaces an account record.
func (s *Store) Put(ctx context.Context, a *Account) error {
	if a.SyncStatus == "" {
		a.SyncStatus = SyncIdle
	}
	if err := s.db.Set(ctx, Collection, a.Key(), a.toDoc()); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

// Delete removes an account record.
func (s *Store) Delete(ctx context.Context, platform, accountID string) error {
	err := s.db.Delete(ctx, Collection, DocKey(platform, accountID))
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListActive returns all accounts with is_active set.
func (s *Store) ListActive(ctx context.Context) ([]*Account, error) {
	docs, err := s.db.Query(ctx, Collection, docstore.Filter{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	out := make([]*Account, 0, len(docs))
	for _, doc := range docs {
		out = append(out, fromDoc(doc))
	}
	return out, nil
}

// BeginSync marks the account as syncing and stamps last_sync_started.
func (s *Store) BeginSync(ctx context.Context, platform, accountID string, now time.Time) error {
	return s.db.Update(ctx, Collection, DocKey(platform, accountID), docstore.Document{
		"sync_status":       string(SyncSyncing),
		"last_sync_started": docstore.FormatTime(now),
		"last_sync_error":   "",
	})
}

// FinishSync returns the account to idle and refreshes its aggregate
// counters from the latest observation.
func (s *Store) FinishSync(ctx context.Context, a *Account) error {
	return s.db.Update(ctx, Collection, a.Key(), docstore.Document{
		"sync_status":     string(SyncIdle),
		"last_sync_error": "",
		"total_videos":    a.TotalVideos,
		"total_views":     a.TotalViews,
		"total_likes":     a.TotalLikes,
		"total_comments":  a.TotalComments,
		"total_shares":    a.TotalShares,
	})
}

// FailSync marks the account's sync as errored with a message.
func (s *Store) FailSync(ctx context.Context, platform, accountID, msg string) error {
	return s.db.Update(ctx, Collection, DocKey(platform, accountID), docstore.Document{
		"sync_status":     string(SyncError),
		"last_sync_error": msg,
	})
}

// StuckSyncing returns accounts whose sync has been in flight (pending or
// syncing) for longer than olderThan as of now. Strictly older than the
// threshold; an account at exactly the boundary is not returned.
func (s *Store) StuckSyncing(ctx context.Context, olderThan time.Duration, now time.Time) ([]*Account, error) {
	var stuck []*Account
	for _, status := range []SyncStatus{SyncPending, SyncSyncing} {
		docs, err := s.db.Query(ctx, Collection, docstore.Filter{"sync_status": string(status)})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s accounts: %w", status, err)
		}
		for _, doc := range docs {
			a := fromDoc(doc)
			if a.LastSyncStarted == nil {
				continue
			}
			if now.Sub(*a.LastSyncStarted) > olderThan {
				stuck = append(stuck, a)
			}
		}
	}
	return stuck, nil
}

// ResetStuck releases a stuck account for a future sync attempt.
// It does not retry the underlying job.
func (s *Store) ResetStuck(ctx context.Context, a *Account, msg string) error {
	return s.db.Update(ctx, Collection, a.Key(), docstore.Document{
		"sync_status":     string(SyncIdle),
		"last_sync_error": msg,
	})
}
