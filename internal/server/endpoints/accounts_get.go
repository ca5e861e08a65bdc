package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// GetAccountEndpoint handles GET /api/accounts/{platform}/{id}.
type GetAccountEndpoint struct{}

func (e *GetAccountEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/accounts/{platform}/{id}", e.handler
}

func (e *GetAccountEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get a tracked account
//	@Description	Get a tracked account by platform and account ID
//	@Tags			accounts
//	@Produce		json
//	@Param			platform	path		string	true	"Platform"
//	@Param			id			path		string	true	"Account ID"
//	@Success		200			{object}	accounts.Account
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/accounts/{platform}/{id} [get]
func (e *GetAccountEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	platform := r.PathValue("platform")
	id := r.PathValue("id")
	if platform == "" || id == "" {
		writeError(w, http.StatusBadRequest, "platform and account id are required")
		return
	}

	store := svcctx.AccountsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "account store not initialized")
		return
	}

	acct, err := store.Get(r.Context(), platform, id)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, acct)
}

func (e *GetAccountEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <platform> <id>",
		Short: "Get a tracked account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp accounts.Account
			if err := client.Get(cmd.Context(), "/api/accounts/"+args[0]+"/"+args[1], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
