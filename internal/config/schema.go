package config

import (
	"time"

	"github.com/creatorpulse/pulse/internal/scrape"
)

// Config holds pulse configuration.
// Stored at: config.yaml (or $HOME/.pulse/config.yaml)
type Config struct {
	Server   ServerConfig                     `mapstructure:"server" yaml:"server"`
	Store    StoreConfig                      `mapstructure:"store" yaml:"store"`
	Queue    QueueConfig                      `mapstructure:"queue" yaml:"queue"`
	Reaper   ReaperConfig                     `mapstructure:"reaper" yaml:"reaper"`
	Scrapers map[string]scrape.ProviderConfig `mapstructure:"scrapers" yaml:"scrapers"`
	Media    MediaConfig                      `mapstructure:"media" yaml:"media"`
	Auth     AuthConfig                       `mapstructure:"auth" yaml:"auth"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// StoreConfig holds document store settings.
type StoreConfig struct {
	// Mode selects the store backing: "docker" manages a local metricsdb
	// container, "external" connects to URL, "memory" is for dev and tests.
	Mode string `mapstructure:"mode" yaml:"mode"`
	URL  string `mapstructure:"url" yaml:"url"`

	// ContainerName is the Docker container name (default: pulse-metricsdb)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind
	Port string `mapstructure:"port" yaml:"port"`
}

// QueueConfig tunes the job dispatcher.
type QueueConfig struct {
	ConcurrencyLimit int           `mapstructure:"concurrency_limit" yaml:"concurrency_limit"`
	MaxAttempts      int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// ReaperConfig tunes the stuck-work sweeps.
type ReaperConfig struct {
	VideoTimeout   time.Duration `mapstructure:"video_timeout" yaml:"video_timeout"`
	AccountTimeout time.Duration `mapstructure:"account_timeout" yaml:"account_timeout"`
	Interval       time.Duration `mapstructure:"interval" yaml:"interval"`
}

// MediaConfig holds thumbnail re-hosting settings.
type MediaConfig struct {
	// BaseURL is the public URL prefix of the system's own object store.
	// Empty disables re-hosting; videos keep remote thumbnail URLs.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// AuthConfig holds the shared secret for scheduled triggers.
type AuthConfig struct {
	// WorkerSecret authorizes scheduled dispatch and sweep calls.
	// Supports ${ENV_VAR} syntax.
	WorkerSecret string `mapstructure:"worker_secret" yaml:"worker_secret"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8480",
		},
		Store: StoreConfig{
			Mode:          "docker",
			ContainerName: "pulse-metricsdb",
			Image:         "ghcr.io/creatorpulse/metricsdb:latest",
			Port:          "9480",
		},
		Queue: QueueConfig{
			ConcurrencyLimit: 6,
			MaxAttempts:      3,
			SweepInterval:    time.Minute,
		},
		Reaper: ReaperConfig{
			VideoTimeout:   5 * time.Minute,
			AccountTimeout: 10 * time.Minute,
			Interval:       time.Minute,
		},
		Scrapers: map[string]scrape.ProviderConfig{
			"tiktok": {
				Type:      "scrapecreators",
				BaseURL:   "https://api.scrapecreators.com",
				APIKey:    "${SCRAPECREATORS_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"instagram": {
				Type:      "scrapecreators",
				BaseURL:   "https://api.scrapecreators.com",
				APIKey:    "${SCRAPECREATORS_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
		},
		Media: MediaConfig{},
		Auth: AuthConfig{
			WorkerSecret: "${PULSE_WORKER_SECRET}",
		},
	}
}

// EnabledScrapers returns the enabled provider configs keyed by platform,
// with API keys resolved from the environment.
func (c *Config) EnabledScrapers() map[string]scrape.ProviderConfig {
	result := make(map[string]scrape.ProviderConfig)
	for platform, cfg := range c.Scrapers {
		if !cfg.Enabled {
			continue
		}
		cfg.APIKey = ResolveEnvVars(cfg.APIKey)
		result[platform] = cfg
	}
	return result
}

// ResolvedWorkerSecret returns the worker secret with environment
// references expanded.
func (c *Config) ResolvedWorkerSecret() string {
	return ResolveEnvVars(c.Auth.WorkerSecret)
}
