package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	apiBase = "https://api.telegram.org"

	// A slow Bot API call must not stall a webhook handler indefinitely.
	defaultTimeout = 15 * time.Second
)

// Client is a minimal Bot API client for the calls this service makes.
// Safe for concurrent use.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given bot token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    apiBase,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBase creates a client against a custom API base URL (tests).
func NewClientWithBase(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
}

// CreateInviteLinkParams mirrors createChatInviteLink. MemberLimit and
// CreatesJoinRequest are mutually exclusive on the Telegram side.
type CreateInviteLinkParams struct {
	ChatID             int64  `json:"chat_id"`
	Name               string `json:"name,omitempty"`
	MemberLimit        int    `json:"member_limit,omitempty"`
	ExpireDate         int64  `json:"expire_date,omitempty"`
	CreatesJoinRequest bool   `json:"creates_join_request,omitempty"`
}

// CreateInviteLink mints a new invite link for the chat.
func (c *Client) CreateInviteLink(ctx context.Context, params CreateInviteLinkParams) (*ChatInviteLink, error) {
	raw, err := c.call(ctx, "createChatInviteLink", params)
	if err != nil {
		return nil, err
	}
	var link ChatInviteLink
	if err := json.Unmarshal(raw, &link); err != nil {
		return nil, fmt.Errorf("decode invite link: %w", err)
	}
	return &link, nil
}

// RevokeInviteLink invalidates a previously created invite link.
func (c *Client) RevokeInviteLink(ctx context.Context, chatID int64, inviteLink string) error {
	_, err := c.call(ctx, "revokeChatInviteLink", map[string]interface{}{
		"chat_id":     chatID,
		"invite_link": inviteLink,
	})
	return err
}

// InlineButton is one entry of an inline keyboard row.
type InlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// SendMessageParams mirrors sendMessage with an optional inline keyboard.
type SendMessageParams struct {
	ChatID  int64
	Text    string
	Buttons [][]InlineButton
}

// SendMessage delivers a text message, optionally with an inline keyboard.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) error {
	payload := map[string]interface{}{
		"chat_id": params.ChatID,
		"text":    params.Text,
	}
	if len(params.Buttons) > 0 {
		payload["reply_markup"] = map[string]interface{}{
			"inline_keyboard": params.Buttons,
		}
	}
	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

// ApproveJoinRequest accepts a pending chat join request.
func (c *Client) ApproveJoinRequest(ctx context.Context, chatID, userID int64) error {
	_, err := c.call(ctx, "approveChatJoinRequest", map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	})
	return err
}

func (c *Client) call(ctx context.Context, method string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return nil, fmt.Errorf("telegram %s: %s", method, apiResp.Description)
	}
	return apiResp.Result, nil
}
