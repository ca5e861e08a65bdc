package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Pulse server",
	Long: `Start the Pulse HTTP server.

In docker store mode this also starts the metricsdb container; when the
server shuts down (via Ctrl+C or SIGTERM), the container is stopped too.
In-flight sync jobs are drained before the store goes away.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes document store status)

Examples:
  pulse serve                     # Start on the configured address
  pulse serve --port 3000         # Start on a custom port
  pulse serve --host 0.0.0.0      # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		mgr, err := newConfigManager()
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		cfg := server.FromConfig(mgr.Get())
		cfg.ConfigManager = mgr
		cfg.Logger = logger
		if serveHost != "" {
			cfg.Host = serveHost
		}
		if servePort != "" {
			cfg.Port = servePort
		}

		srv, err := server.New(cfg)
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")

	rootCmd.AddCommand(serveCmd)
}
