package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/jobs"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// AccountRef identifies one tracked account.
type AccountRef struct {
	Platform  string `json:"platform"`
	AccountID string `json:"accountId"`
}

// CreateSessionRequest is the request body for starting a refresh
// session. An empty account list means every active tracked account in
// the org/project.
type CreateSessionRequest struct {
	OrgID     string       `json:"orgId"`
	ProjectID string       `json:"projectId"`
	Accounts  []AccountRef `json:"accounts,omitempty"`
	Strategy  string       `json:"strategy,omitempty"`
}

// CreateSessionResponse reports the created session and its jobs.
type CreateSessionResponse struct {
	SessionID     string   `json:"sessionId"`
	TotalAccounts int64    `json:"totalAccounts"`
	JobIDs        []string `json:"jobIds"`
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{}

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start a refresh session
//	@Description	Create a refresh session and enqueue one sync job per account
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSessionRequest	true	"Session scope"
//	@Success		201		{object}	CreateSessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/sessions [post]
func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	svcs := svcctx.ServicesFrom(r.Context())
	if svcs == nil || svcs.Sessions == nil || svcs.Dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "services not initialized")
		return
	}

	refs := req.Accounts
	if len(refs) == 0 {
		active, err := svcs.Accounts.ListActive(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, a := range active {
			if req.OrgID != "" && a.OrgID != req.OrgID {
				continue
			}
			if req.ProjectID != "" && a.ProjectID != req.ProjectID {
				continue
			}
			refs = append(refs, AccountRef{Platform: a.Platform, AccountID: a.AccountID})
		}
	}
	if len(refs) == 0 {
		writeError(w, http.StatusBadRequest, "no accounts to sync")
		return
	}

	session, err := svcs.Sessions.Create(r.Context(), req.OrgID, req.ProjectID, int64(len(refs)))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jobIDs := make([]string, 0, len(refs))
	for _, ref := range refs {
		res, err := svcs.Dispatcher.Enqueue(r.Context(), &jobs.Job{
			Type:      jobs.TypeAccountSync,
			OrgID:     req.OrgID,
			ProjectID: req.ProjectID,
			Platform:  ref.Platform,
			AccountID: ref.AccountID,
			SessionID: session.ID,
			Priority:  jobs.PriorityNormal,
			Strategy:  req.Strategy,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		jobIDs = append(jobIDs, res.JobID)
	}

	writeJSON(w, http.StatusCreated, CreateSessionResponse{
		SessionID:     session.ID,
		TotalAccounts: session.TotalAccounts,
		JobIDs:        jobIDs,
	})
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req CreateSessionRequest
	var userID, secret string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a refresh session across tracked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if secret != "" {
				client.WithWorkerSecret(secret)
			}
			if userID != "" {
				client.WithUserID(userID)
			}
			var resp CreateSessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.OrgID, "org", "", "Organization ID")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Sync strategy for all accounts")
	cmd.Flags().StringVar(&userID, "user", "", "User identity for manual triggers")
	cmd.Flags().StringVar(&secret, "secret", "", "Shared worker secret")
	return cmd
}
