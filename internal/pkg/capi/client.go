package capi

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAPIBase    = "https://graph.facebook.com"
	defaultAPIVersion = "v18.0"
	defaultTimeout    = 15 * time.Second

	ActionSourceWebsite = "website"
)

// UserData is the user-matching block of a conversion event. Fields marked
// hashed are SHA-256'd before leaving this package; fbc/fbp/ip/user_agent go
// over the wire raw per the Conversions API contract.
type UserData struct {
	Email      string // hashed
	Phone      string // hashed
	City       string // hashed
	Region     string // hashed
	Country    string // hashed
	PostalCode string // hashed
	ExternalID string // hashed

	FBC       string
	FBP       string
	IPAddress string
	UserAgent string
}

// CustomData is the free-value block of a conversion event.
type CustomData struct {
	Currency    string  `json:"currency,omitempty"`
	Value       float64 `json:"value,omitempty"`
	ContentName string  `json:"content_name,omitempty"`
	UTMSource   string  `json:"utm_source,omitempty"`
	UTMMedium   string  `json:"utm_medium,omitempty"`
	UTMCampaign string  `json:"utm_campaign,omitempty"`
	UTMContent  string  `json:"utm_content,omitempty"`
	UTMTerm     string  `json:"utm_term,omitempty"`
}

// Event is one server event as accepted by the /events edge.
type Event struct {
	EventName      string     `json:"event_name"`
	EventTime      int64      `json:"event_time"`
	ActionSource   string     `json:"action_source"`
	EventSourceURL string     `json:"event_source_url,omitempty"`
	UserData       wireUser   `json:"user_data"`
	CustomData     CustomData `json:"custom_data"`
}

type wireUser struct {
	Em         []string `json:"em,omitempty"`
	Ph         []string `json:"ph,omitempty"`
	Ct         []string `json:"ct,omitempty"`
	St         []string `json:"st,omitempty"`
	Country    []string `json:"country,omitempty"`
	Zp         []string `json:"zp,omitempty"`
	ExternalID []string `json:"external_id,omitempty"`
	FBC        string   `json:"fbc,omitempty"`
	FBP        string   `json:"fbp,omitempty"`
	ClientIP   string   `json:"client_ip_address,omitempty"`
	ClientUA   string   `json:"client_user_agent,omitempty"`
}

// Client sends server-side conversion events to the Meta Conversions API.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a Conversions API client.
func NewClient() *Client {
	return &Client{
		baseURL:    defaultAPIBase,
		apiVersion: defaultAPIVersion,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBase creates a client against a custom API base URL (tests).
func NewClientWithBase(baseURL string) *Client {
	c := NewClient()
	c.baseURL = baseURL
	return c
}

// BuildEvent assembles a wire event with hashed user data and the current
// timestamp when eventTime is zero.
func BuildEvent(eventName string, eventTime int64, sourceURL string, user UserData, custom CustomData) Event {
	if eventTime == 0 {
		eventTime = time.Now().Unix()
	}
	return Event{
		EventName:      eventName,
		EventTime:      eventTime,
		ActionSource:   ActionSourceWebsite,
		EventSourceURL: sourceURL,
		UserData: wireUser{
			Em:         hashedField(user.Email),
			Ph:         hashedField(user.Phone),
			Ct:         hashedField(user.City),
			St:         hashedField(user.Region),
			Country:    hashedField(user.Country),
			Zp:         hashedField(user.PostalCode),
			ExternalID: hashedField(user.ExternalID),
			FBC:        user.FBC,
			FBP:        user.FBP,
			ClientIP:   user.IPAddress,
			ClientUA:   user.UserAgent,
		},
		CustomData: custom,
	}
}

// SendEvent delivers one event to the given pixel.
func (c *Client) SendEvent(ctx context.Context, accessToken, pixelID string, event Event) error {
	if accessToken == "" || pixelID == "" {
		return fmt.Errorf("capi: missing access token or pixel id")
	}

	payload := map[string]interface{}{
		"data": []Event{event},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("capi: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.baseURL, c.apiVersion, pixelID, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("capi: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("capi: HTTP %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return nil
}

// HashValue normalizes and SHA-256 hashes a user-matching value.
func HashValue(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func hashedField(value string) []string {
	if value == "" {
		return nil
	}
	return []string{HashValue(value)}
}
