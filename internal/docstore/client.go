package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// Client is an HTTP client for the metricsdb document store service.
// It implements Store against the service's REST JSON API.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a new metricsdb client.
func NewClient(baseURL string) *Client {
	return &Client{
		url: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) docURL(collection, key string) string {
	return fmt.Sprintf("%s/api/v1/%s/%s", c.url, url.PathEscape(collection), url.PathEscape(key))
}

func (c *Client) Get(ctx context.Context, collection, key string) (Document, error) {
	var doc Document
	if err := c.do(ctx, "GET", c.docURL(collection, key), nil, &doc); err != nil {
		return nil, err
	}
	doc[KeyField] = key
	return doc, nil
}

func (c *Client) Set(ctx context.Context, collection, key string, doc Document) error {
	return c.do(ctx, "PUT", c.docURL(collection, key), stripKey(doc), nil)
}

func (c *Client) Update(ctx context.Context, collection, key string, fields Document) error {
	return c.do(ctx, "PATCH", c.docURL(collection, key), stripKey(fields), nil)
}

func (c *Client) Delete(ctx context.Context, collection, key string) error {
	return c.do(ctx, "DELETE", c.docURL(collection, key), nil, nil)
}

func (c *Client) Query(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	reqBody := map[string]any{}
	if filter != nil {
		reqBody["filter"] = filter
	}

	var resp struct {
		Documents []Document `json:"documents"`
	}
	endpoint := fmt.Sprintf("%s/api/v1/%s/query", c.url, url.PathEscape(collection))
	if err := c.do(ctx, "POST", endpoint, reqBody, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *Client) Increment(ctx context.Context, collection, key, field string, delta int64) (int64, error) {
	reqBody := map[string]any{
		"field": field,
		"delta": delta,
	}
	var resp struct {
		Value int64 `json:"value"`
	}
	endpoint := c.docURL(collection, key) + "/increment"
	if err := c.do(ctx, "POST", endpoint, reqBody, &resp); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

func (c *Client) Batch() WriteBatch {
	return &clientBatch{client: c}
}

// HealthCheck checks whether metricsdb is reachable and healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// WaitReady polls the health endpoint until the store responds or the
// timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	return retry.Do(
		func() error { return c.HealthCheck(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(timeout.Seconds())),
		retry.Delay(1*time.Second),
	)
}

// URL returns the store base URL.
func (c *Client) URL() string {
	return c.url
}

// do executes one request, decoding a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("store error (status %d): %s", resp.StatusCode, string(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

type clientBatchOp struct {
	Collection string   `json:"collection"`
	Key        string   `json:"key"`
	Fields     Document `json:"fields"`
	Op         string   `json:"op"` // "set" or "update"
}

type clientBatch struct {
	client *Client
	ops    []clientBatchOp
}

func (b *clientBatch) Set(collection, key string, doc Document) {
	b.ops = append(b.ops, clientBatchOp{Collection: collection, Key: key, Fields: stripKey(doc), Op: "set"})
}

func (b *clientBatch) Update(collection, key string, fields Document) {
	b.ops = append(b.ops, clientBatchOp{Collection: collection, Key: key, Fields: stripKey(fields), Op: "update"})
}

func (b *clientBatch) Len() int {
	return len(b.ops)
}

func (b *clientBatch) Commit(ctx context.Context) error {
	if len(b.ops) > MaxBatchOps {
		return ErrBatchTooLarge
	}
	if len(b.ops) == 0 {
		return nil
	}

	err := b.client.do(ctx, "POST", b.client.url+"/api/v1/batch", map[string]any{"ops": b.ops}, nil)
	if err != nil {
		return fmt.Errorf("batch commit failed: %w", err)
	}
	b.ops = nil
	return nil
}

// stripKey drops the reserved key field before sending a document body.
func stripKey(doc Document) Document {
	if _, ok := doc[KeyField]; !ok {
		return doc
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == KeyField {
			continue
		}
		out[k] = v
	}
	return out
}
