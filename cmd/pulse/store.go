package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/docstore"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the metricsdb container",
	Long: `Manage the metricsdb container lifecycle.

The document store is the source of truth for all sync state. In docker
store mode the database runs in a container managed by Pulse.

Examples:
  pulse store start   # Start the metricsdb container
  pulse store stop    # Stop the container (data preserved)
  pulse store status  # Check container status
  pulse store logs    # View container logs`,
}

// getStoreManager builds a Docker manager from configuration.
func getStoreManager() (*docstore.DockerManager, error) {
	mgr, err := newConfigManager()
	if err != nil {
		return nil, err
	}
	store := mgr.Get().Store
	return docstore.NewDockerManager(docstore.DockerConfig{
		ContainerName: store.ContainerName,
		Image:         store.Image,
		HostPort:      store.Port,
	})
}

var storeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the metricsdb container",
	Long: `Start the metricsdb container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting metricsdb...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metricsdb: %w", err)
		}

		fmt.Printf("metricsdb is running at %s\n", mgr.URL())
		return nil
	},
}

var storeStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the metricsdb container",
	Long: `Stop the metricsdb container.

This stops the container but preserves data. Use 'pulse store start'
to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping metricsdb...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop metricsdb: %w", err)
		}

		fmt.Println("metricsdb stopped")
		return nil
	},
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show metricsdb container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case docstore.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URL: %s\n", mgr.URL())

			// Try health check
			client := docstore.NewClient(mgr.URL())
			if err := client.HealthCheck(ctx); err != nil {
				fmt.Printf("Health: unhealthy (%v)\n", err)
			} else {
				fmt.Println("Health: healthy")
			}
		case docstore.StatusStopped:
			fmt.Printf("Status: %s (use 'pulse store start' to start)\n", status)
		case docstore.StatusNotFound:
			fmt.Printf("Status: %s (use 'pulse store start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var logsTail string

var storeLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show metricsdb container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), logsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var storeRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the metricsdb container",
	Long: `Remove the metricsdb container.

This stops and removes the container. The data volume is NOT deleted,
only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing metricsdb container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("metricsdb container removed (data preserved)")
		return nil
	},
}

var waitTimeout time.Duration

var storeWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for metricsdb to be ready",
	Long: `Wait for metricsdb to be ready to accept connections.

This is useful in scripts to ensure the store is fully started before
running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getStoreManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		if err := mgr.WaitReady(cmd.Context(), waitTimeout); err != nil {
			return fmt.Errorf("metricsdb not ready: %w", err)
		}

		fmt.Println("metricsdb is ready")
		return nil
	},
}

func init() {
	storeLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of log lines to show")
	storeWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 60*time.Second, "How long to wait")

	storeCmd.AddCommand(storeStartCmd)
	storeCmd.AddCommand(storeStopCmd)
	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeLogsCmd)
	storeCmd.AddCommand(storeRemoveCmd)
	storeCmd.AddCommand(storeWaitCmd)

	rootCmd.AddCommand(storeCmd)
}
