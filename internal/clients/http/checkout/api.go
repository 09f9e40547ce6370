package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// LineItem is one priced line on the hosted payment page. Amounts are in
// the currency's minor unit.
type LineItem struct {
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	UnitAmount int64  `json:"unit_amount"`
}

// CreateSessionRequest opens a hosted checkout session.
type CreateSessionRequest struct {
	Mode       string            `json:"mode"`
	Currency   string            `json:"currency"`
	LineItems  []LineItem        `json:"line_items"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Session is the provider's checkout session resource.
type Session struct {
	ID            string            `json:"id"`
	URL           *string           `json:"url,omitempty"`
	PaymentStatus *string           `json:"payment_status,omitempty"`
	AmountTotal   *int64            `json:"amount_total,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Error is the provider's error body.
type Error struct {
	Error struct {
		Type    *string `json:"type,omitempty"`
		Message *string `json:"message,omitempty"`
	} `json:"error"`
}

// NewCreateSessionRequest builds POST /checkout/sessions.
func NewCreateSessionRequest(ctx context.Context, server string, body CreateSessionRequest) (*http.Request, error) {
	queryURL, err := resolve(server, "checkout/sessions")
	if err != nil {
		return nil, err
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// NewGetSessionRequest builds GET /checkout/sessions/{id}.
func NewGetSessionRequest(ctx context.Context, server, sessionID string) (*http.Request, error) {
	pathID, err := runtime.StyleParamWithLocation("simple", false, "id", runtime.ParamLocationPath, sessionID)
	if err != nil {
		return nil, err
	}
	queryURL, err := resolve(server, fmt.Sprintf("checkout/sessions/%s", pathID))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func resolve(server, path string) (string, error) {
	serverURL, err := url.Parse(strings.TrimSuffix(server, "/") + "/")
	if err != nil {
		return "", err
	}
	queryURL, err := serverURL.Parse(path)
	if err != nil {
		return "", err
	}
	return queryURL.String(), nil
}
