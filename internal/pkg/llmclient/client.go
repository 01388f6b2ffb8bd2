// Package llmclient is the JSON-over-HTTP transport shared by the REST generators.
// A call is exactly one POST; nothing here retries.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"adaptstudio/internal/core"
	"adaptstudio/internal/httpclient"
)

// DefaultMaxResponseBytes caps a response body. Generated images arrive base64 encoded
// inside JSON, so this is well above any single creative.
const DefaultMaxResponseBytes int64 = 64 << 20

// Options configures a Client.
type Options struct {
	// Provider names the upstream in errors and logs.
	Provider string
	BaseURL  string
	// Headers adds provider headers, such as credentials, to every request.
	Headers func(h http.Header)
	// MaxResponseBytes defaults to DefaultMaxResponseBytes.
	MaxResponseBytes int64
}

// Client posts JSON to one upstream API.
type Client struct {
	httpClient *http.Client
	opts       Options
}

// New creates a client. A nil httpClient uses the httpclient defaults.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClient(nil)
	}
	if opts.MaxResponseBytes <= 0 {
		opts.MaxResponseBytes = DefaultMaxResponseBytes
	}
	return &Client{httpClient: httpClient, opts: opts}
}

// SetBaseURL points the client at another host, typically a test server.
func (c *Client) SetBaseURL(url string) {
	c.opts.BaseURL = url
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.opts.BaseURL
}

// PostJSON sends payload to endpoint and returns the body of a 200 response.
// Other statuses are converted with core.ParseProviderError. When ctx ends first its
// error is returned unchanged.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := core.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	if c.opts.Headers != nil {
		c.opts.Headers(req.Header)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, core.NewGenerationError(c.opts.Provider, "failed to send request: "+err.Error(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxResponseBytes+1))
	if err != nil {
		return nil, core.NewGenerationError(c.opts.Provider, "failed to read response: "+err.Error(), err)
	}
	if int64(len(body)) > c.opts.MaxResponseBytes {
		msg := fmt.Sprintf("response larger than %d bytes", c.opts.MaxResponseBytes)
		return nil, core.NewGenerationError(c.opts.Provider, msg, nil)
	}

	slog.DebugContext(ctx, "upstream call",
		"provider", c.opts.Provider,
		"endpoint", endpoint,
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, core.ParseProviderError(c.opts.Provider, resp.StatusCode, body, nil)
	}
	return body, nil
}
