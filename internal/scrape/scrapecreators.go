package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const scrapeCreatorsName = "scrapecreators"

// ScrapeCreatorsConfig configures the ScrapeCreators API client.
type ScrapeCreatorsConfig struct {
	BaseURL   string
	APIKey    string
	RateLimit int // requests per minute
	Logger    *slog.Logger
}

// ScrapeCreatorsClient fetches account and video metrics from the
// ScrapeCreators API. Calls honor the provider's rate limit via a local
// token bucket and retry transient failures.
type ScrapeCreatorsClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *RateLimiter
	logger     *slog.Logger
}

// NewScrapeCreatorsClient creates a new client.
func NewScrapeCreatorsClient(cfg ScrapeCreatorsConfig) *ScrapeCreatorsClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrapeCreatorsClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: NewRateLimiter(cfg.RateLimit),
		logger:  logger,
	}
}

// Name returns the provider identifier.
func (c *ScrapeCreatorsClient) Name() string {
	return scrapeCreatorsName
}

// LimiterStatus exposes the rate limiter state for status endpoints.
func (c *ScrapeCreatorsClient) LimiterStatus() RateLimiterStatus {
	return c.limiter.Status()
}

// FetchAccount returns metric records for one account.
func (c *ScrapeCreatorsClient) FetchAccount(ctx context.Context, req AccountRequest) ([]RawVideo, error) {
	params := url.Values{}
	params.Set("handle", req.Handle)
	params.Set("account_id", req.AccountID)
	params.Set("strategy", string(req.Strategy))

	endpoint := fmt.Sprintf("%s/v1/%s/account/videos?%s", c.baseURL, url.PathEscape(req.Platform), params.Encode())

	payload, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, &ProviderError{Provider: scrapeCreatorsName, Err: err}
	}

	videos, err := decodeVideoList(payload)
	if err != nil {
		return nil, &ProviderError{Provider: scrapeCreatorsName, Err: err}
	}
	return videos, nil
}

// FetchVideo returns the metric record for a single video URL.
func (c *ScrapeCreatorsClient) FetchVideo(ctx context.Context, videoURL string) (*RawVideo, error) {
	params := url.Values{}
	params.Set("url", videoURL)
	endpoint := fmt.Sprintf("%s/v1/video?%s", c.baseURL, params.Encode())

	payload, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, &ProviderError{Provider: scrapeCreatorsName, Err: err}
	}

	videos, err := decodeVideoList(payload)
	if err != nil {
		return nil, &ProviderError{Provider: scrapeCreatorsName, Err: err}
	}
	if len(videos) == 0 {
		return nil, &ProviderError{Provider: scrapeCreatorsName, Err: fmt.Errorf("no record for video url")}
	}
	return &videos[0], nil
}

// get performs a rate-limited GET with retries and returns the raw body.
func (c *ScrapeCreatorsClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}

			req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("x-api-key", c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			switch {
			case resp.StatusCode == http.StatusOK:
				body = raw
				return nil
			case resp.StatusCode == http.StatusTooManyRequests:
				c.limiter.Record429()
				return fmt.Errorf("rate limited (status 429)")
			case resp.StatusCode >= 500:
				return fmt.Errorf("server error (status %d)", resp.StatusCode)
			default:
				return retry.Unrecoverable(fmt.Errorf("request rejected (status %d): %s", resp.StatusCode, string(raw)))
			}
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// decodeVideoList validates and decodes a provider video list payload.
func decodeVideoList(raw []byte) ([]RawVideo, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("malformed provider payload: %w", err)
	}
	if err := validatePayload(generic); err != nil {
		return nil, err
	}

	var resp struct {
		Videos []RawVideo `json:"videos"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode provider payload: %w", err)
	}
	return resp.Videos, nil
}
