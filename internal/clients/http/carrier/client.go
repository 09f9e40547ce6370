package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

var (
	// ErrNotFound is returned when the provider does not know the shipment.
	ErrNotFound = errors.New("tracking not found")
	// ErrUnavailable wraps throttling, 5xx responses and an open breaker.
	ErrUnavailable = errors.New("tracking provider unavailable")
)

// Client calls the tracking provider through a circuit breaker.
type Client struct {
	server     string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*Tracking]
}

type Option func(*gobreaker.Settings)

// WithBreaker overrides how many consecutive failures open the breaker and how long it stays open.
func WithBreaker(failures uint32, openFor time.Duration) Option {
	return func(s *gobreaker.Settings) {
		if failures > 0 {
			s.ReadyToTrip = func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= failures }
		}
		if openFor > 0 {
			s.Timeout = openFor
		}
	}
}

// NewCarrierClient instantiates the tracking client with sane defaults.
func NewCarrierClient(baseURL, apiKey string, httpClient *http.Client, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("carrier base URL is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	settings := gobreaker.Settings{
		Name:        "carrier",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		// An unknown shipment is a healthy answer.
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, ErrNotFound) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&settings)
		}
	}
	return &Client{
		server:     baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		breaker:    gobreaker.NewCircuitBreaker[*Tracking](settings),
	}, nil
}

// GetTracking fetches the tracking resource for a courier slug and number.
func (c *Client) GetTracking(ctx context.Context, slug, trackingNumber string) (*Tracking, error) {
	if c == nil || c.httpClient == nil {
		return nil, errors.New("carrier client not configured")
	}
	slug, trackingNumber = strings.TrimSpace(slug), strings.TrimSpace(trackingNumber)
	if slug == "" || trackingNumber == "" {
		return nil, errors.New("courier slug and tracking number are required")
	}
	tracking, err := c.breaker.Execute(func() (*Tracking, error) {
		return c.getTracking(ctx, slug, trackingNumber)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return tracking, err
}

func (c *Client) getTracking(ctx context.Context, slug, trackingNumber string) (*Tracking, error) {
	req, err := NewGetTrackingRequest(ctx, c.server, slug, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("build carrier request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call carrier API: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read carrier response: %w", err)
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusOK:
		var envelope TrackingEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("decode carrier response: %w", err)
		}
		if envelope.Data.Tracking == nil {
			return &Tracking{}, nil
		}
		return envelope.Data.Tracking, nil
	case status == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, errorMessage(body, resp.Status))
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, errorMessage(body, resp.Status))
	case status >= http.StatusBadRequest:
		return nil, fmt.Errorf("carrier API error: %s", errorMessage(body, resp.Status))
	default:
		return nil, fmt.Errorf("carrier API unexpected status: %s", resp.Status)
	}
}

func errorMessage(body []byte, fallback string) string {
	var e Error
	if err := json.Unmarshal(body, &e); err != nil {
		return fallback
	}
	if e.Meta.Message != nil {
		if msg := strings.TrimSpace(*e.Meta.Message); msg != "" {
			return msg
		}
	}
	if e.Meta.Type != nil {
		if msg := strings.TrimSpace(*e.Meta.Type); msg != "" {
			return msg
		}
	}
	return fallback
}
