package main

import (
	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Pulse server via HTTP.

These commands require a running server (pulse serve).
Use --server to specify a custom server URL.

Examples:
  pulse api health                             # Check server health
  pulse api jobs list                          # List all jobs
  pulse api sync dispatch --platform tiktok \
    --account acct-1 --user me                 # Trigger an account sync`,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync dispatch and sweep commands",
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Job management commands",
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Refresh session commands",
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Tracked account commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8480", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Sync as subcommand group
	syncCmd.AddCommand((&endpoints.DispatchEndpoint{}).Command(getServerURL))
	syncCmd.AddCommand((&endpoints.SweepEndpoint{}).Command(getServerURL))

	// Jobs as subcommand group
	jobsCmd.AddCommand((&endpoints.CreateJobEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.ListJobsEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.GetJobEndpoint{}).Command(getServerURL))
	jobsCmd.AddCommand((&endpoints.DeleteJobEndpoint{}).Command(getServerURL))

	// Sessions as subcommand group
	sessionsCmd.AddCommand((&endpoints.CreateSessionEndpoint{}).Command(getServerURL))
	sessionsCmd.AddCommand((&endpoints.GetSessionEndpoint{}).Command(getServerURL))

	// Accounts as subcommand group
	accountsCmd.AddCommand((&endpoints.ListAccountsEndpoint{}).Command(getServerURL))
	accountsCmd.AddCommand((&endpoints.GetAccountEndpoint{}).Command(getServerURL))
	accountsCmd.AddCommand((&endpoints.PutAccountEndpoint{}).Command(getServerURL))

	apiCmd.AddCommand(syncCmd)
	apiCmd.AddCommand(jobsCmd)
	apiCmd.AddCommand(sessionsCmd)
	apiCmd.AddCommand(accountsCmd)

	rootCmd.AddCommand(apiCmd)
}
