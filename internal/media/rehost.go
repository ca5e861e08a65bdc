package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// maxThumbnailBytes caps how much of a remote thumbnail is read.
const maxThumbnailBytes = 10 << 20

// Rehoster copies remote thumbnails into the object store.
type Rehoster struct {
	store      ObjectStore
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRehoster creates a rehoster backed by the given object store.
func NewRehoster(store ObjectStore, logger *slog.Logger) *Rehoster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rehoster{
		store: store,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// Resolve returns the URL to persist for a scraped thumbnail.
// URLs already hosted by our object store are reused as-is. Otherwise the
// image is fetched and re-hosted under key. On any failure the original
// remote URL is returned along with the error; callers log and continue.
func (r *Rehoster) Resolve(ctx context.Context, remoteURL, key string) (string, error) {
	if remoteURL == "" {
		return "", nil
	}
	if r.store.Hosts(remoteURL) {
		return remoteURL, nil
	}

	data, contentType, err := r.fetch(ctx, remoteURL)
	if err != nil {
		return remoteURL, fmt.Errorf("thumbnail fetch failed: %w", err)
	}

	hosted, err := r.store.Put(ctx, key, data, contentType)
	if err != nil {
		return remoteURL, fmt.Errorf("thumbnail upload failed: %w", err)
	}
	return hosted, nil
}

func (r *Rehoster) fetch(ctx context.Context, url string) ([]byte, string, error) {
	var data []byte
	var contentType string

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := r.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				err := fmt.Errorf("unexpected status %d", resp.StatusCode)
				if resp.StatusCode >= 400 && resp.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxThumbnailBytes))
			if err != nil {
				return err
			}
			data = body
			contentType = resp.Header.Get("Content-Type")
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}
