package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/accounts"
	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// ListAccountsResponse is the response for listing tracked accounts.
type ListAccountsResponse struct {
	Accounts []*accounts.Account `json:"accounts"`
}

// ListAccountsEndpoint handles GET /api/accounts.
type ListAccountsEndpoint struct{}

func (e *ListAccountsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/accounts", e.handler
}

func (e *ListAccountsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List tracked accounts
//	@Description	List active tracked accounts
//	@Tags			accounts
//	@Produce		json
//	@Success		200	{object}	ListAccountsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/accounts [get]
func (e *ListAccountsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.AccountsFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "account store not initialized")
		return
	}

	list, err := store.ListActive(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ListAccountsResponse{Accounts: list})
}

func (e *ListAccountsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active tracked accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListAccountsResponse
			if err := client.Get(cmd.Context(), "/api/accounts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
