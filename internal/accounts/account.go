// Package accounts persists tracked creator accounts and their sync state.
package accounts

import (
	"fmt"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// Collection is the document store collection for tracked accounts.
const Collection = "accounts"

// SyncStatus is a tracked account's sync lifecycle state.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// Account is a tracked creator account on one platform.
// Identity is Platform + AccountID; the storage key is DocKey.
type Account struct {
	Platform  string `json:"platform"`
	AccountID string `json:"account_id"`
	Handle    string `json:"handle"`
	OrgID     string `json:"org_id"`
	ProjectID string `json:"project_id"`
	IsActive  bool   `json:"is_active"`

	SyncStatus      SyncStatus `json:"sync_status"`
	LastSyncStarted *time.Time `json:"last_sync_started,omitempty"`
	LastSyncError   string     `json:"last_sync_error,omitempty"`

	// Aggregate counters across all tracked videos.
	TotalVideos   int64 `json:"total_videos"`
	TotalViews    int64 `json:"total_views"`
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int64 `json:"total_comments"`
	TotalShares   int64 `json:"total_shares"`
}

// DocKey returns the deterministic storage key for an account identity.
func DocKey(platform, accountID string) string {
	return fmt.Sprintf("%s:%s", platform, accountID)
}

// Key returns the account's storage key.
func (a *Account) Key() string {
	return DocKey(a.Platform, a.AccountID)
}

func (a *Account) toDoc() docstore.Document {
	doc := docstore.Document{
		"platform":        a.Platform,
		"account_id":      a.AccountID,
		"handle":          a.Handle,
		"org_id":          a.OrgID,
		"project_id":      a.ProjectID,
		"is_active":       a.IsActive,
		"sync_status":     string(a.SyncStatus),
		"last_sync_error": a.LastSyncError,
		"total_videos":    a.TotalVideos,
		"total_views":     a.TotalViews,
		"total_likes":     a.TotalLikes,
		"total_comments":  a.TotalComments,
		"total_shares":    a.TotalShares,
	}
	if a.LastSyncStarted != nil {
		doc["last_sync_started"] = docstore.FormatTime(*a.LastSyncStarted)
	}
	return doc
}

func fromDoc(doc docstore.Document) *Account {
	a := &Account{
		Platform:      doc.String("platform"),
		AccountID:     doc.String("account_id"),
		Handle:        doc.String("handle"),
		OrgID:         doc.String("org_id"),
		ProjectID:     doc.String("project_id"),
		IsActive:      doc.Bool("is_active"),
		SyncStatus:    SyncStatus(doc.String("sync_status")),
		LastSyncError: doc.String("last_sync_error"),
		TotalVideos:   doc.Int("total_videos"),
		TotalViews:    doc.Int("total_views"),
		TotalLikes:    doc.Int("total_likes"),
		TotalComments: doc.Int("total_comments"),
		TotalShares:   doc.Int("total_shares"),
	}
	if t := doc.Time("last_sync_started"); !t.IsZero() {
		a.LastSyncStarted = &t
	}
	return a
}
