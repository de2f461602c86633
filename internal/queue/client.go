package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/movienighthub/movienight/internal/catalog"
)

const (
	defaultClientTimeout = 30 * time.Second
	maxResponseBytes     = 1 << 20
)

// Client talks to a movienight server's enrichment endpoints. It satisfies
// both Enricher and StatusSource.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{Timeout: defaultClientTimeout},
	}
}

// Enrich calls POST /search-movie in AI-only mode.
func (c *Client) Enrich(ctx context.Context, title string) (catalog.Fields, error) {
	body, err := json.Marshal(map[string]any{"title": title, "aiOnly": true})
	if err != nil {
		return catalog.Fields{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/search-movie", bytes.NewReader(body))
	if err != nil {
		return catalog.Fields{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload, err := c.do(req)
	if err != nil {
		return catalog.Fields{}, err
	}

	switch {
	case status == http.StatusTooManyRequests:
		var limited struct {
			RetryAfterSeconds int `json:"retry_after_seconds"`
		}
		_ = json.Unmarshal(payload, &limited)
		return catalog.Fields{}, &RateLimitedError{RetryAfter: time.Duration(limited.RetryAfterSeconds) * time.Second}
	case status < 200 || status >= 300:
		return catalog.Fields{}, fmt.Errorf("search-movie: status %d: %s", status, errorMessage(payload))
	}

	var fields catalog.Fields
	if err := json.Unmarshal(payload, &fields); err != nil {
		return catalog.Fields{}, fmt.Errorf("decode search-movie response: %w", err)
	}
	return fields, nil
}

// Status calls GET /ai-status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/ai-status", nil)
	if err != nil {
		return Status{}, fmt.Errorf("build request: %w", err)
	}

	code, payload, err := c.do(req)
	if err != nil {
		return Status{}, err
	}
	if code != http.StatusOK {
		return Status{}, fmt.Errorf("ai-status: status %d: %s", code, errorMessage(payload))
	}

	var status Status
	if err := json.Unmarshal(payload, &status); err != nil {
		return Status{}, fmt.Errorf("decode ai-status response: %w", err)
	}
	return status, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

func errorMessage(payload []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(payload))
}
