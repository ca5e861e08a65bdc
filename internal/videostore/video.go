// Package videostore persists videos and their append-only metric
// snapshots. Video identity is deterministic: the storage key is derived
// from platform, account and provider video id, so two racing writers
// converge on the same record instead of duplicating it.
package videostore

import (
	"fmt"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// Collection is the document collection holding video records.
const Collection = "videos"

// Video lifecycle status.
const (
	StatusActive     = "active"
	StatusProcessing = "processing"
)

// Video is one tracked video and its current metric counters.
type Video struct {
	Platform        string `json:"platform"`
	AccountID       string `json:"accountId"`
	ProviderVideoID string `json:"providerVideoId"`
	OrgID           string `json:"orgId"`
	ProjectID       string `json:"projectId"`

	Title        string     `json:"title,omitempty"`
	URL          string     `json:"url,omitempty"`
	MediaURL     string     `json:"mediaUrl,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	UploadedAt   *time.Time `json:"uploadedAt,omitempty"`

	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`

	Status          string     `json:"status"`
	SyncStatus      string     `json:"syncStatus,omitempty"`
	SyncError       string     `json:"syncError,omitempty"`
	SyncRequestedAt *time.Time `json:"syncRequestedAt,omitempty"`

	DateAdded     time.Time `json:"dateAdded"`
	LastRefreshed time.Time `json:"lastRefreshed"`
}

// DocKey returns the deterministic storage key for a video.
func DocKey(platform, accountID, providerVideoID string) string {
	return fmt.Sprintf("%s:%s:%s", platform, accountID, providerVideoID)
}

// Key returns the video's own storage key.
func (v *Video) Key() string {
	return DocKey(v.Platform, v.AccountID, v.ProviderVideoID)
}

// Doc renders the video as a storage document.
func (v *Video) Doc() docstore.Document {
	doc := docstore.Document{
		"platform":        v.Platform,
		"accountId":       v.AccountID,
		"providerVideoId": v.ProviderVideoID,
		"orgId":           v.OrgID,
		"projectId":       v.ProjectID,
		"title":           v.Title,
		"url":             v.URL,
		"mediaUrl":        v.MediaURL,
		"thumbnailUrl":    v.ThumbnailURL,
		"views":           v.Views,
		"likes":           v.Likes,
		"comments":        v.Comments,
		"shares":          v.Shares,
		"status":          v.Status,
		"syncStatus":      v.SyncStatus,
		"syncError":       v.SyncError,
		"dateAdded":       docstore.FormatTime(v.DateAdded),
		"lastRefreshed":   docstore.FormatTime(v.LastRefreshed),
	}
	if v.UploadedAt != nil {
		doc["uploadedAt"] = docstore.FormatTime(*v.UploadedAt)
	}
	if v.SyncRequestedAt != nil {
		doc["syncRequestedAt"] = docstore.FormatTime(*v.SyncRequestedAt)
	}
	return doc
}

func fromDoc(doc docstore.Document) *Video {
	v := &Video{
		Platform:        doc.String("platform"),
		AccountID:       doc.String("accountId"),
		ProviderVideoID: doc.String("providerVideoId"),
		OrgID:           doc.String("orgId"),
		ProjectID:       doc.String("projectId"),
		Title:           doc.String("title"),
		URL:             doc.String("url"),
		MediaURL:        doc.String("mediaUrl"),
		ThumbnailURL:    doc.String("thumbnailUrl"),
		Views:           doc.Int("views"),
		Likes:           doc.Int("likes"),
		Comments:        doc.Int("comments"),
		Shares:          doc.Int("shares"),
		Status:          doc.String("status"),
		SyncStatus:      doc.String("syncStatus"),
		SyncError:       doc.String("syncError"),
		DateAdded:       doc.Time("dateAdded"),
		LastRefreshed:   doc.Time("lastRefreshed"),
	}
	if t := doc.Time("uploadedAt"); !t.IsZero() {
		v.UploadedAt = &t
	}
	if t := doc.Time("syncRequestedAt"); !t.IsZero() {
		v.SyncRequestedAt = &t
	}
	return v
}
