package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

var (
	errTargetRequired   = errors.New("accountId or videoUrl is required")
	errPlatformRequired = errors.New("platform is required")
)

// DispatchRequest is the request body for triggering a sync.
// Either platform+accountId (account sync) or videoUrl (single video)
// must be set.
type DispatchRequest struct {
	Platform  string `json:"platform,omitempty"`
	AccountID string `json:"accountId,omitempty"`
	VideoURL  string `json:"videoUrl,omitempty"`
	OrgID     string `json:"orgId"`
	ProjectID string `json:"projectId"`
	SessionID string `json:"sessionId,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// DispatchResponse reports the outcome of a dispatched sync.
type DispatchResponse struct {
	JobID            string `json:"jobId"`
	Dispatched       bool   `json:"dispatched"`
	Success          bool   `json:"success"`
	VideosAdded      int    `json:"videosAdded"`
	VideosUpdated    int    `json:"videosUpdated"`
	SnapshotsCreated int    `json:"snapshotsCreated"`
	Saved            int    `json:"saved"`
	DurationMs       int64  `json:"durationMs"`
	Error            string `json:"error,omitempty"`
}

// DispatchEndpoint handles POST /api/sync/dispatch.
type DispatchEndpoint struct{}

func (e *DispatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sync/dispatch", e.handler
}

func (e *DispatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Dispatch a sync
//	@Description	Run an account or single-video metrics sync and wait for the outcome
//	@Tags			sync
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DispatchRequest	true	"Sync target"
//	@Success		200		{object}	DispatchResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/sync/dispatch [post]
func (e *DispatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := jobFromDispatch(req, caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dispatcher := svcctx.DispatcherFrom(r.Context())
	if dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not initialized")
		return
	}

	res, err := dispatcher.EnqueueWait(r.Context(), job)
	if err != nil {
		if res != nil {
			// Caller disconnected or timed out; the job keeps running.
			writeJSON(w, http.StatusAccepted, dispatchResponse(res))
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dispatchResponse(res))
}

func dispatchResponse(res *jobs.DispatchResult) DispatchResponse {
	return DispatchResponse{
		JobID:            res.JobID,
		Dispatched:       res.Dispatched,
		Success:          res.Success,
		VideosAdded:      res.Result.VideosAdded,
		VideosUpdated:    res.Result.VideosUpdated,
		SnapshotsCreated: res.Result.SnapshotsCreated,
		Saved:            res.Result.Saved,
		DurationMs:       res.Duration.Milliseconds(),
		Error:            res.Error,
	}
}

// jobFromDispatch validates a dispatch request and builds its job.
// Manual triggers run at high priority, session account syncs at
// normal, standalone worker refreshes at low.
func jobFromDispatch(req DispatchRequest, caller Caller) (*jobs.Job, error) {
	job := &jobs.Job{
		OrgID:     req.OrgID,
		ProjectID: req.ProjectID,
		Platform:  req.Platform,
		AccountID: req.AccountID,
		VideoURL:  req.VideoURL,
		SessionID: req.SessionID,
		Strategy:  req.Strategy,
	}

	switch {
	case req.VideoURL != "":
		if req.Platform == "" {
			return nil, errPlatformRequired
		}
		job.Type = jobs.TypeSingleVideo
	case req.AccountID != "":
		if req.Platform == "" {
			return nil, errPlatformRequired
		}
		job.Type = jobs.TypeAccountSync
	default:
		return nil, errTargetRequired
	}

	switch {
	case caller.Manual():
		job.Priority = jobs.PriorityHigh
	case req.SessionID != "":
		job.Priority = jobs.PriorityNormal
	default:
		job.Priority = jobs.PriorityLow
	}
	return job, nil
}

func (e *DispatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req DispatchRequest
	var userID, secret string
	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Dispatch a sync and wait for the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if secret != "" {
				client.WithWorkerSecret(secret)
			}
			if userID != "" {
				client.WithUserID(userID)
			}
			var resp DispatchResponse
			if err := client.Post(cmd.Context(), "/api/sync/dispatch", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.Platform, "platform", "", "Platform (e.g. tiktok)")
	cmd.Flags().StringVar(&req.AccountID, "account", "", "Account ID to sync")
	cmd.Flags().StringVar(&req.VideoURL, "video-url", "", "Single video URL to refresh")
	cmd.Flags().StringVar(&req.OrgID, "org", "", "Organization ID")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Refresh session ID")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Sync strategy (progressive, refresh_only, discovery_only)")
	cmd.Flags().StringVar(&userID, "user", "", "User identity for manual triggers")
	cmd.Flags().StringVar(&secret, "secret", "", "Shared worker secret")
	return cmd
}
