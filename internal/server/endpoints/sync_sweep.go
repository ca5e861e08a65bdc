package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/svcctx"
)

// SweepResponse reports how many pending jobs a sweep dispatched.
type SweepResponse struct {
	Dispatched int `json:"dispatched"`
}

// SweepEndpoint handles POST /api/sync/sweep. Only the scheduled
// worker may call it.
type SweepEndpoint struct{}

func (e *SweepEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sync/sweep", e.handler
}

func (e *SweepEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Sweep pending jobs
//	@Description	Dispatch pending jobs while worker capacity remains
//	@Tags			sync
//	@Produce		json
//	@Success		200	{object}	SweepResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/sync/sweep [post]
func (e *SweepEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if !requireWorker(w, r) {
		return
	}

	dispatcher := svcctx.DispatcherFrom(r.Context())
	if dispatcher == nil {
		writeError(w, http.StatusServiceUnavailable, "dispatcher not initialized")
		return
	}

	n, err := dispatcher.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SweepResponse{Dispatched: n})
}

func (e *SweepEndpoint) Command(getServerURL func() string) *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Dispatch pending jobs while capacity remains",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL()).WithWorkerSecret(secret)
			var resp SweepResponse
			if err := client.Post(cmd.Context(), "/api/sync/sweep", struct{}{}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "Shared worker secret")
	return cmd
}
