// Package fetch performs the single outbound search request for a tracked
// search. One invocation is one attempt; the external scheduler owns retries.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/slekota/jobwatch/internal/model"
)

// snippetLimit bounds how much of an error response body is kept for logs.
const snippetLimit = 500

// Client issues bounded GET requests against search endpoints.
type Client struct {
	httpClient *http.Client
	limiter    *HostLimiter
	userAgent  string
}

// NewClient wraps the given http.Client (which carries the fetch timeout).
// limiter may be nil to disable per-host pacing.
func NewClient(httpClient *http.Client, limiter *HostLimiter, userAgent string) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  userAgent,
	}
}

// Get performs one GET against url and returns the raw body. wantJSON adds
// the Accept: application/json hint. A non-2xx status is returned as a
// *model.HTTPError carrying the status and a body snippet.
func (c *Client) Get(ctx context.Context, url string, wantJSON bool) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.WaitURL(ctx, url); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if wantJSON {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.HTTPError{
			StatusCode: resp.StatusCode,
			Snippet:    snippet(body),
			Err:        fmt.Errorf("unexpected status from %s", url),
		}
	}

	return body, nil
}

func snippet(body []byte) string {
	if len(body) > snippetLimit {
		body = body[:snippetLimit]
	}
	return string(body)
}
