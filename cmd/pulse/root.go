package main

import (
	"github.com/spf13/cobra"

	"github.com/creatorpulse/pulse/internal/api"
	"github.com/creatorpulse/pulse/internal/config"
	"github.com/creatorpulse/pulse/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Social-media metrics refresh engine for tracked creator accounts",
	Long: `Pulse refreshes social-media metrics (views, likes, comments, shares)
for tracked creator accounts and individual videos, pulled from
third-party scraping providers.

It runs sync jobs under a bounded worker pool, records immutable
metric snapshots per observation, aggregates refresh sessions across
accounts, and reaps work that got stuck mid-flight.`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.pulse/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newConfigManager loads configuration honoring the --config flag.
func newConfigManager() (*config.Manager, error) {
	return config.NewManager(cfgFile)
}
