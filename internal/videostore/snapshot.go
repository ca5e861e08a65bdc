package videostore

import (
	"time"

	"github.com/google/uuid"

	"github.com/creatorpulse/pulse/internal/docstore"
)

// SnapshotCollection holds the append-only metric time series. Snapshots
// are never updated after creation.
const SnapshotCollection = "snapshots"

// CaptureSource tags a snapshot with the event that produced it.
type CaptureSource string

const (
	CaptureInitialSync      CaptureSource = "initial_sync"
	CaptureManualRefresh    CaptureSource = "manual_refresh"
	CaptureScheduledRefresh CaptureSource = "scheduled_refresh"
)

// Snapshot is one immutable metric observation for a video.
type Snapshot struct {
	ID       string `json:"id"`
	VideoKey string `json:"videoKey"`

	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`

	CapturedAt        time.Time     `json:"capturedAt"`
	CapturedBy        CaptureSource `json:"capturedBy"`
	IsInitialSnapshot bool          `json:"isInitialSnapshot"`
}

func newSnapshot(videoKey string, views, likes, comments, shares int64, by CaptureSource, initial bool, at time.Time) *Snapshot {
	return &Snapshot{
		ID:                uuid.NewString(),
		VideoKey:          videoKey,
		Views:             views,
		Likes:             likes,
		Comments:          comments,
		Shares:            shares,
		CapturedAt:        at,
		CapturedBy:        by,
		IsInitialSnapshot: initial,
	}
}

func (s *Snapshot) toDoc() docstore.Document {
	return docstore.Document{
		"id":                s.ID,
		"videoKey":          s.VideoKey,
		"views":             s.Views,
		"likes":             s.Likes,
		"comments":          s.Comments,
		"shares":            s.Shares,
		"capturedAt":        docstore.FormatTime(s.CapturedAt),
		"capturedBy":        string(s.CapturedBy),
		"isInitialSnapshot": s.IsInitialSnapshot,
	}
}

func snapshotFromDoc(doc docstore.Document) *Snapshot {
	return &Snapshot{
		ID:                doc.String("id"),
		VideoKey:          doc.String("videoKey"),
		Views:             doc.Int("views"),
		Likes:             doc.Int("likes"),
		Comments:          doc.Int("comments"),
		Shares:            doc.Int("shares"),
		CapturedAt:        doc.Time("capturedAt"),
		CapturedBy:        CaptureSource(doc.String("capturedBy")),
		IsInitialSnapshot: doc.Bool("isInitialSnapshot"),
	}
}
