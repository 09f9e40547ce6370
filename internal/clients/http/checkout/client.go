package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned for an unknown session id.
var ErrNotFound = errors.New("checkout session not found")

// Client wraps the payment provider's checkout session API.
type Client struct {
	server     string
	apiKey     string
	httpClient *http.Client
}

// NewCheckoutClient instantiates the checkout client with sane defaults.
func NewCheckoutClient(baseURL, apiKey string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("checkout base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{server: baseURL, apiKey: apiKey, httpClient: httpClient}, nil
}

// CreateSession opens a hosted checkout session.
func (c *Client) CreateSession(ctx context.Context, body CreateSessionRequest) (*Session, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("checkout client not configured")
	}
	if len(body.LineItems) == 0 {
		return nil, errors.New("checkout session needs at least one line item")
	}
	req, err := NewCreateSessionRequest(ctx, c.server, body)
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	return c.do(req)
}

// GetSession retrieves a checkout session by id.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("checkout client not configured")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("checkout session id is required")
	}
	req, err := NewGetSessionRequest(ctx, c.server, sessionID)
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Session, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call checkout API: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		var session Session
		if err := json.Unmarshal(body, &session); err != nil {
			return nil, fmt.Errorf("decode checkout response: %w", err)
		}
		if session.ID == "" {
			return nil, errors.New("checkout API returned a session without id")
		}
		return &session, nil
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, errorMessage(body, resp.Status))
	case status >= http.StatusBadRequest:
		return nil, fmt.Errorf("checkout API error: %s", errorMessage(body, resp.Status))
	default:
		return nil, fmt.Errorf("checkout API unexpected status: %s", resp.Status)
	}
}

func errorMessage(body []byte, fallback string) string {
	var e Error
	if err := json.Unmarshal(body, &e); err != nil {
		return fallback
	}
	if e.Error.Message != nil {
		if msg := strings.TrimSpace(*e.Error.Message); msg != "" {
			return msg
		}
	}
	return fallback
}
