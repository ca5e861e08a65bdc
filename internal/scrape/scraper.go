// Package scrape defines the scraping-provider capability: given an account
// handle or video URL, return raw metric records or fail. Providers have
// their own rate limits; the dispatcher's concurrency ceiling exists to
// respect them.
package scrape

import (
	"context"
	"fmt"
	"time"
)

// Strategy selects which subset of data a sync run fetches.
type Strategy string

const (
	// StrategyProgressive fetches new-content discovery plus metric
	// refresh for already-known videos.
	StrategyProgressive Strategy = "progressive"

	// StrategyRefreshOnly fetches metrics for known videos only and never
	// creates new video records downstream.
	StrategyRefreshOnly Strategy = "refresh_only"

	// StrategyDiscoveryOnly fetches only newly published content.
	StrategyDiscoveryOnly Strategy = "discovery_only"
)

// ParseStrategy maps a stored string to a Strategy, defaulting to
// progressive for empty or unknown values.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyRefreshOnly:
		return StrategyRefreshOnly
	case StrategyDiscoveryOnly:
		return StrategyDiscoveryOnly
	default:
		return StrategyProgressive
	}
}

// AccountRequest asks a provider for one account's videos.
type AccountRequest struct {
	Platform  string
	AccountID string
	Handle    string
	Strategy  Strategy
}

// RawVideo is one metric record as returned by a provider, before
// normalization into the video schema.
type RawVideo struct {
	Platform        string     `json:"platform"`
	AccountID       string     `json:"account_id"`
	ProviderVideoID string     `json:"video_id"`
	Title           string     `json:"title,omitempty"`
	URL             string     `json:"url,omitempty"`
	MediaURL        string     `json:"media_url,omitempty"`
	ThumbnailURL    string     `json:"thumbnail_url,omitempty"`
	UploadedAt      *time.Time `json:"uploaded_at,omitempty"`

	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`

	// MetricsOnly marks a record carrying only refreshed counters for a
	// video the provider assumes is already known. Such records never
	// create videos downstream.
	MetricsOnly bool `json:"metrics_only,omitempty"`
}

// Scraper is the provider capability contract.
type Scraper interface {
	// Name returns the provider identifier (e.g., "scrapecreators").
	Name() string

	// FetchAccount returns metric records for one account per the
	// request's strategy.
	FetchAccount(ctx context.Context, req AccountRequest) ([]RawVideo, error)

	// FetchVideo returns the metric record for a single video URL.
	FetchVideo(ctx context.Context, videoURL string) (*RawVideo, error)
}

// ProviderError wraps a failure from a scraping provider. Provider errors
// surface to the owning job's terminal status; they are never silently
// swallowed.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
