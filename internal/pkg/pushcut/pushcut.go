package pushcut

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultAPIBase = "https://api.pushcut.io/v1"
	defaultTimeout = 15 * time.Second
)

// Notification is one push to send through a tenant's Pushcut account.
type Notification struct {
	APIKey           string
	NotificationName string
	Title            string
	Text             string
	Sound            string
	Devices          []string
}

// Client talks to the Pushcut notification API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Pushcut client.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultAPIBase,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBase creates a client against a custom API base URL (tests).
func NewClientWithBase(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// Send delivers the notification. The returned error carries the upstream
// response body so callers can log it verbatim.
func (c *Client) Send(ctx context.Context, n Notification) error {
	body := map[string]interface{}{
		"title": n.Title,
		"text":  n.Text,
	}
	if n.Sound != "" {
		body["sound"] = n.Sound
	}
	if len(n.Devices) > 0 {
		body["devices"] = n.Devices
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pushcut: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/notifications/%s", c.baseURL, url.PathEscape(n.NotificationName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("API-Key", n.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushcut: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		errText, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pushcut: HTTP %d: %s", resp.StatusCode, string(errText))
	}
	return nil
}
