package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://slack.com/api"
	timeout        = 3 * time.Second
	maxSize        = 1 << 20 // 1 MiB.
)

// Client is a minimal Slack Web API client. It holds two credentials:
// a bot token ("xoxb-...") for Web API methods, and an app-level token
// ("xapp-...") which is only used to open Socket Mode connections.
type Client struct {
	botToken string
	appToken string
	baseURL  string
	http     *http.Client
}

// ClientOption customizes the behavior of [NewClient].
type ClientOption func(*Client)

// WithBaseURL replaces the Slack API base URL, for unit tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

func NewClient(botToken, appToken string, opts ...ClientOption) *Client {
	c := &Client{
		botToken: botToken,
		appToken: appToken,
		baseURL:  defaultBaseURL,
		http:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse is the common envelope of all Slack Web API responses. See
// https://docs.slack.dev/apis/web-api/#responses. Method-specific fields
// are limited to the ones this bot actually reads.
type apiResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	URL    string `json:"url,omitempty"`     // apps.connections.open
	UserID string `json:"user_id,omitempty"` // auth.test
	Team   string `json:"team,omitempty"`    // auth.test
}

// call sends a single Web API request and parses its response envelope.
// Slack reports business errors with an HTTP 200 and "ok": false, so
// both layers are checked here.
func (c *Client) call(ctx context.Context, method, token string, payload any) (*apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", method, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, body)
	if err != nil {
		return nil, fmt.Errorf("failed to construct HTTP request: %w", err)
	}

	req.Header.Add("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Add("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read HTTP response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := resp.Status
		if len(respBody) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, string(respBody))
		}
		return nil, errors.New(msg)
	}

	decoded := &apiResponse{}
	if err := json.Unmarshal(respBody, decoded); err != nil {
		return nil, fmt.Errorf("failed to parse JSON in HTTP response body: %w", err)
	}
	if !decoded.OK {
		return nil, fmt.Errorf("Slack API error: %s", decoded.Error)
	}

	return decoded, nil
}

// AuthTest checks that the bot token is valid, and returns the bot's own
// user ID and team name. Based on
// https://docs.slack.dev/reference/methods/auth.test.
func (c *Client) AuthTest(ctx context.Context) (userID, team string, err error) {
	resp, err := c.call(ctx, "auth.test", c.botToken, nil)
	if err != nil {
		return "", "", err
	}
	return resp.UserID, resp.Team, nil
}

// PostMessage sends a plain-text message to a channel or user. Based on
// https://docs.slack.dev/reference/methods/chat.postMessage.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	_, err := c.call(ctx, "chat.postMessage", c.botToken, map[string]string{
		"channel": channel,
		"text":    text,
	})
	return err
}

// PublishHomeView publishes (or replaces) a user's App Home tab view.
// Based on https://docs.slack.dev/reference/methods/views.publish.
func (c *Client) PublishHomeView(ctx context.Context, userID string, view View) error {
	_, err := c.call(ctx, "views.publish", c.botToken, map[string]any{
		"user_id": userID,
		"view":    view,
	})
	return err
}

// OpenSocketURL generates a temporary Socket Mode WebSocket URL ("wss://...")
// that an unpublished Slack app can connect to, to receive events and
// interactive payloads. The URL is single-use, so this must be called again
// for every reconnection. Based on
// https://docs.slack.dev/reference/methods/apps.connections.open.
func (c *Client) OpenSocketURL(ctx context.Context) (string, error) {
	resp, err := c.call(ctx, "apps.connections.open", c.appToken, nil)
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}
