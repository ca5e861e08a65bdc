package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// PutAccountEndpoint handles PUT /api/accounts. It upserts a tracked
// account by its platform + account ID identity.
type PutAccountEndpoint struct{}

func (e *PutAccountEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PUT", "/api/accounts", e.handler
}

func (e *PutAccountEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Track an account
//	@Description	Create or update a tracked account
//	@Tags			accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		accounts.Account	true	"Account"
//	@Success		200		{object}	accounts.Account
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/accounts [put]
func (e *PutAccountEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireCaller(w, r); !ok {
		return
	}

	var acct accounts.Account
	if err := json.NewDecoder(r.Body).Decode(&acct); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if acct.Platform == "" || acct.AccountID == "" {
		writeError(w, http.StatusBadRequest, "platform and account_id are required")
		return
	}

	store := svcctx.AccountsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "account store not initialized")
		return
	}

	if err := store.Put(r.Context(), &acct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, &acct)
}

func (e *PutAccountEndpoint) Command(getServerURL func() string) *cobra.Command {
	var acct accounts.Account
	var userID, secret string
	cmd := &cobra.Command{
		Use:   "put",
		Short: "Create or update a tracked account",
		RunE: func(cmd *cobra.Command, args []string) error {
			acct.IsActive = true
			client := api.NewClient(getServerURL())
			if secret != "" {
				client.WithWorkerSecret(secret)
			}
			if userID != "" {
				client.WithUserID(userID)
			}
			var resp accounts.Account
			if err := client.Put(cmd.Context(), "/api/accounts", acct, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&acct.Platform, "platform", "", "Platform (e.g. tiktok)")
	cmd.Flags().StringVar(&acct.AccountID, "account", "", "Account ID")
	cmd.Flags().StringVar(&acct.Handle, "handle", "", "Account handle")
	cmd.Flags().StringVar(&acct.OrgID, "org", "", "Organization ID")
	cmd.Flags().StringVar(&acct.ProjectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&userID, "user", "", "User identity")
	cmd.Flags().StringVar(&secret, "secret", "", "Shared worker secret")
	return cmd
}
