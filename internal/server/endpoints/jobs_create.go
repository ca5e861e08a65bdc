package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// CreateJobResponse is the response for creating a job.
type CreateJobResponse struct {
	ID         string `json:"id"`
	Dispatched bool   `json:"dispatched"`
}

// CreateJobEndpoint handles POST /api/jobs. Unlike dispatch it returns
// as soon as the job is persisted; the caller polls for the outcome.
type CreateJobEndpoint struct{}

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Create a sync job
//	@Description	Persist a sync job and dispatch it if capacity exists
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DispatchRequest	true	"Sync target"
//	@Success		201		{object}	CreateJobResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/jobs [post]
func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	res, err := dispatcher.Enqueue(r.Context(), job)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, CreateJobResponse{ID: res.JobID, Dispatched: res.Dispatched})
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req DispatchRequest
	var userID, secret string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a sync job without waiting for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if secret != "" {
				client.WithWorkerSecret(secret)
			}
			if userID != "" {
				client.WithUserID(userID)
			}
			var resp CreateJobResponse
			if err := client.Post(cmd.Context(), "/api/jobs", req, &resp); err != nil {
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
