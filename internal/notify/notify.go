// Package notify delivers one-time summary notifications for completed
// refresh sessions.
package notify

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Summary is the payload for a session-completed notification.
type Summary struct {
	SessionID         string `json:"sessionId"`
	OrgID             string `json:"orgId"`
	ProjectID         string `json:"projectId"`
	TotalAccounts     int64  `json:"totalAccounts"`
	CompletedAccounts int64  `json:"completedAccounts"`
	TotalVideos       int64  `json:"totalVideos"`
	TotalViews        int64  `json:"totalViews"`
	TotalLikes        int64  `json:"totalLikes"`
	TotalComments     int64  `json:"totalComments"`
	TotalShares       int64  `json:"totalShares"`
}

// Notifier receives the one-time completion signal for a session.
type Notifier interface {
	SessionCompleted(ctx context.Context, summary Summary) error
}

// LogNotifier writes session summaries to the log. It stands in for an
// email or webhook sender in dev and test configurations.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to logger.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) SessionCompleted(ctx context.Context, s Summary) error {
	n.logger.Info("refresh session completed",
		"session_id", s.SessionID,
		"org_id", s.OrgID,
		"accounts", s.CompletedAccounts,
		"videos", s.TotalVideos,
		"views", s.TotalViews)
	return nil
}

// CountingNotifier records delivery counts for tests.
type CountingNotifier struct {
	calls atomic.Int64
	last  atomic.Pointer[Summary]
}

func (n *CountingNotifier) SessionCompleted(ctx context.Context, s Summary) error {
	n.calls.Add(1)
	n.last.Store(&s)
	return nil
}

// Calls returns the number of delivered notifications.
func (n *CountingNotifier) Calls() int64 {
	return n.calls.Load()
}

// Last returns the most recent summary, or nil.
func (n *CountingNotifier) Last() *Summary {
	return n.last.Load()
}
