// Package session tracks refresh sessions: batches of concurrently
// dispatched account syncs with aggregate progress and a one-time
// completion notification.
package session

import (
	"fmt"
	"time"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// Collections used by the aggregator. Per-account stats live in their own
// collection, one document per (session, account), so concurrent accounts
// never contend on a shared map field.
const (
	Collection      = "sessions"
	StatsCollection = "session_stats"
)

// Session status values.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Session is one tracked refresh batch across N accounts.
type Session struct {
	ID        string `json:"id"`
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`

	TotalAccounts     int64 `json:"totalAccounts"`
	CompletedAccounts int64 `json:"completedAccounts"`

	TotalVideos   int64 `json:"totalVideos"`
	TotalViews    int64 `json:"totalViews"`
	TotalLikes    int64 `json:"totalLikes"`
	TotalComments int64 `json:"totalComments"`
	TotalShares   int64 `json:"totalShares"`

	Status    string     `json:"status"`
	EmailSent bool       `json:"emailSent"`
	CreatedAt time.Time  `json:"createdAt"`
	Completed *time.Time `json:"completedAt,omitempty"`
}

// AccountStats is one account's contribution to a session.
type AccountStats struct {
	SessionID string    `json:"sessionId"`
	AccountID string    `json:"accountId"`
	Saved     int64     `json:"saved"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	Comments  int64     `json:"comments"`
	Shares    int64     `json:"shares"`
	Reported  time.Time `json:"reportedAt"`
}

// StatsKey returns the storage key for one account's session stats.
func StatsKey(sessionID, accountID string) string {
	return fmt.Sprintf("%s:%s", sessionID, accountID)
}

func (s *Session) toDoc() docstore.Document {
	doc := docstore.Document{
		"id":                s.ID,
		"orgId":             s.OrgID,
		"projectId":         s.ProjectID,
		"totalAccounts":     s.TotalAccounts,
		"completedAccounts": s.CompletedAccounts,
		"totalVideos":       s.TotalVideos,
		"totalViews":        s.TotalViews,
		"totalLikes":        s.TotalLikes,
		"totalComments":     s.TotalComments,
		"totalShares":       s.TotalShares,
		"status":            s.Status,
		"emailSent":         s.EmailSent,
		"createdAt":         docstore.FormatTime(s.CreatedAt),
	}
	if s.Completed != nil {
		doc["completedAt"] = docstore.FormatTime(*s.Completed)
	}
	return doc
}

func fromDoc(doc docstore.Document) *Session {
	s := &Session{
		ID:                doc.String("id"),
		OrgID:             doc.String("orgId"),
		ProjectID:         doc.String("projectId"),
		TotalAccounts:     doc.Int("totalAccounts"),
		CompletedAccounts: doc.Int("completedAccounts"),
		TotalVideos:       doc.Int("totalVideos"),
		TotalViews:        doc.Int("totalViews"),
		TotalLikes:        doc.Int("totalLikes"),
		TotalComments:     doc.Int("totalComments"),
		TotalShares:       doc.Int("totalShares"),
		Status:            doc.String("status"),
		EmailSent:         doc.Bool("emailSent"),
		CreatedAt:         doc.Time("createdAt"),
	}
	if t := doc.Time("completedAt"); !t.IsZero() {
		s.Completed = &t
	}
	return s
}

func (a *AccountStats) toDoc() docstore.Document {
	return docstore.Document{
		"sessionId":  a.SessionID,
		"accountId":  a.AccountID,
		"saved":      a.Saved,
		"views":      a.Views,
		"likes":      a.Likes,
		"comments":   a.Comments,
		"shares":     a.Shares,
		"reportedAt": docstore.FormatTime(a.Reported),
	}
}

func statsFromDoc(doc docstore.Document) *AccountStats {
	return &AccountStats{
		SessionID: doc.String("sessionId"),
		AccountID: doc.String("accountId"),
		Saved:     doc.Int("saved"),
		Views:     doc.Int("views"),
		Likes:     doc.Int("likes"),
		Comments:  doc.Int("comments"),
		Shares:    doc.Int("shares"),
		Reported:  doc.Time("reportedAt"),
	}
}
