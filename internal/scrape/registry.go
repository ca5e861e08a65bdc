package scrape

import (
	"fmt"
	"log/slog"
	"sync"
)

// ProviderConfig configures one scraping provider.
type ProviderConfig struct {
	Type      string `mapstructure:"type"` // "scrapecreators" or "mock"
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	RateLimit int    `mapstructure:"rate_limit"` // requests per minute
	Enabled   bool   `mapstructure:"enabled"`
}

// Registry holds scrapers keyed by platform. It supports config-driven
// instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu       sync.RWMutex
	scrapers map[string]Scraper
	logger   *slog.Logger
}

// NewRegistry creates an empty scraper registry.
func NewRegistry() *Registry {
	return &Registry{
		scrapers: make(map[string]Scraper),
		logger:   slog.Default(),
	}
}

// SetLogger sets the registry logger.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// Register registers a scraper for a platform.
func (r *Registry) Register(platform string, s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[platform] = s
	if r.logger != nil {
		r.logger.Info("registered scraper", "platform", platform, "provider", s.Name())
	}
}

// Unregister removes the scraper for a platform.
func (r *Registry) Unregister(platform string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scrapers, platform)
	if r.logger != nil {
		r.logger.Info("unregistered scraper", "platform", platform)
	}
}

// ForPlatform returns the scraper registered for a platform.
func (r *Registry) ForPlatform(platform string) (Scraper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scrapers[platform]
	if !ok {
		return nil, fmt.Errorf("no scraper registered for platform: %s", platform)
	}
	return s, nil
}

// Platforms returns all registered platform names.
func (r *Registry) Platforms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scrapers))
	for name := range r.scrapers {
		names = append(names, name)
	}
	return names
}

// Reload replaces registered scrapers from configuration. Platforms with
// disabled or unknown provider types are dropped.
func (r *Registry) Reload(cfgs map[string]ProviderConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Scraper, len(cfgs))
	for platform, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		switch cfg.Type {
		case "scrapecreators":
			next[platform] = NewScrapeCreatorsClient(ScrapeCreatorsConfig{
				BaseURL:   cfg.BaseURL,
				APIKey:    cfg.APIKey,
				RateLimit: cfg.RateLimit,
				Logger:    r.logger,
			})
		case "mock":
			next[platform] = NewMockScraper()
		default:
			if r.logger != nil {
				r.logger.Warn("unknown scraper type", "platform", platform, "type", cfg.Type)
			}
			continue
		}
	}

	r.scrapers = next
	if r.logger != nil {
		r.logger.Info("scraper registry reloaded", "platforms", len(next))
	}
}
