// Package jobs persists queued sync work and dispatches it under a
// concurrency ceiling. A job targets one account or one video; it moves
// status only forward (pending -> running -> completed or failed) and is
// never re-run automatically, only re-enqueued as a new job.
package jobs

import (
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// Collection is the document collection holding job records.
const Collection = "jobs"

// Type identifies what a job syncs.
type Type string

const (
	TypeAccountSync Type = "account_sync"
	TypeSingleVideo Type = "single_video"
)

// Status represents the current state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status permits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a forward transition from s to next is
// legal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Priority levels. Higher values dispatch first; equal priorities
// dispatch oldest first.
const (
	PriorityLow    = 0  // scheduled background refreshes
	PriorityNormal = 10 // session account syncs
	PriorityHigh   = 20 // manual single-video refreshes
)

// Job is one unit of queued sync work.
type Job struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Status    Status `json:"status"`
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`

	// Target reference: AccountID (with Platform) for account syncs,
	// VideoURL for single-video jobs.
	Platform  string `json:"platform,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`

	// SessionID links an account sync to its refresh session, if any.
	SessionID string `json:"sessionId,omitempty"`

	Priority    int    `json:"priority"`
	Strategy    string `json:"strategy,omitempty"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"maxAttempts"`

	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func (j *Job) toDoc() docstore.Document {
	doc := docstore.Document{
		"id":          j.ID,
		"type":        string(j.Type),
		"status":      string(j.Status),
		"orgId":       j.OrgID,
		"projectId":   j.ProjectID,
		"platform":    j.Platform,
		"accountId":   j.AccountID,
		"videoUrl":    j.VideoURL,
		"sessionId":   j.SessionID,
		"priority":    int64(j.Priority),
		"strategy":    j.Strategy,
		"attempts":    int64(j.Attempts),
		"maxAttempts": int64(j.MaxAttempts),
		"createdAt":   docstore.FormatTime(j.CreatedAt),
		"error":       j.Error,
	}
	if j.StartedAt != nil {
		doc["startedAt"] = docstore.FormatTime(*j.StartedAt)
	}
	if j.CompletedAt != nil {
		doc["completedAt"] = docstore.FormatTime(*j.CompletedAt)
	}
	return doc
}

func fromDoc(doc docstore.Document) *Job {
	j := &Job{
		ID:          doc.String("id"),
		Type:        Type(doc.String("type")),
		Status:      Status(doc.String("status")),
		OrgID:       doc.String("orgId"),
		ProjectID:   doc.String("projectId"),
		Platform:    doc.String("platform"),
		AccountID:   doc.String("accountId"),
		VideoURL:    doc.String("videoUrl"),
		SessionID:   doc.String("sessionId"),
		Priority:    int(doc.Int("priority")),
		Strategy:    doc.String("strategy"),
		Attempts:    int(doc.Int("attempts")),
		MaxAttempts: int(doc.Int("maxAttempts")),
		CreatedAt:   doc.Time("createdAt"),
		Error:       doc.String("error"),
	}
	if t := doc.Time("startedAt"); !t.IsZero() {
		j.StartedAt = &t
	}
	if t := doc.Time("completedAt"); !t.IsZero() {
		j.CompletedAt = &t
	}
	return j
}
