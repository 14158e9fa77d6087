package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sceneforge/api/internal/model"
)

// WebhookClient delivers terminal composition results. Delivery is
// fire-and-forget: the caller logs errors and never retries.
type WebhookClient struct {
	httpClient *http.Client
}

// NewWebhookClient creates a webhook client with the given timeout.
func NewWebhookClient(timeout time.Duration) *WebhookClient {
	return &WebhookClient{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Notify POSTs the result to the job's webhook URL.
func (c *WebhookClient) Notify(ctx context.Context, url string, result *model.CompositionResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %s", resp.Status)
	}

	return nil
}
