package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Fetcher retrieves remote source assets into local scratch storage.
type Fetcher interface {
	Fetch(ctx context.Context, url string, dest string) error
}

// FetchClient implements Fetcher over plain HTTP. Network and HTTP
// failures are surfaced verbatim; retrying is the caller's concern.
type FetchClient struct {
	httpClient *http.Client
}

// NewFetchClient creates a fetcher with the given per-request timeout.
func NewFetchClient(timeout time.Duration) *FetchClient {
	return &FetchClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch streams the URL to dest.
func (c *FetchClient) Fetch(ctx context.Context, url string, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed for %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed for %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return f.Close()
}
