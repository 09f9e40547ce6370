//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	pacttest "github.com/Apurer/order-engine/test/pact"
)

// exampleToken is replaced by a freshly signed token during provider verification.
const exampleToken = "Bearer eyJhbGciOiJIUzI1NiJ9.e30.signature"

type orderPayload struct {
	ID            string `json:"id"`
	BuyerID       string `json:"buyerId"`
	Status        string `json:"status"`
	PaymentMethod string `json:"paymentMethod"`
	Amount        string `json:"amount"`
	Paid          bool   `json:"paid"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
}

func (e apiError) Error() string { return fmt.Sprintf("%s (status %d)", e.title, e.status) }

func TestStorefrontContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.StorefrontName,
		Provider: pacttest.EngineName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	bearer := matchers.Regex(exampleToken, "^Bearer [A-Za-z0-9_\\-]+\\.[A-Za-z0-9_\\-]+\\.[A-Za-z0-9_\\-]+$")
	orderMatcher := func(id string) matchers.Map {
		return matchers.Map{
			"id":            matchers.Like(id),
			"buyerId":       matchers.Like(pacttest.BuyerID),
			"status":        matchers.Term("Placed", "Placed|Packing|Shipped|OutForDelivery|Delivered|Cancelled"),
			"paymentMethod": matchers.Term("cod", "cod|online"),
			"amount":        matchers.Regex("60.00", "^\\d+\\.\\d{2}$"),
			"paid":          matchers.Like(false),
		}
	}

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a buyer fetching their order").
		WithRequest("GET", "/v1/orders/"+pacttest.ExistingOrder, func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderMatcher(pacttest.ExistingOrder))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a buyer fetching a missing order").
		WithRequest("GET", "/v1/orders/"+pacttest.MissingOrder, func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogSeeded).
		UponReceiving("a buyer placing a cash-on-delivery order").
		WithRequest("POST", "/v1/orders/cod", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Authorization", bearer)
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(map[string]any{
				"items":   []map[string]any{{"productId": pacttest.ProductID, "name": "Pact Tee", "quantity": 2}},
				"address": pacttest.ExampleAddress(),
			})
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderMatcher("generated-id"))
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		client := &storefrontClient{
			baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
			httpClient: &http.Client{Timeout: 10 * time.Second},
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		order, err := client.GetOrder(ctx, pacttest.ExistingOrder)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if order.ID != pacttest.ExistingOrder {
			return fmt.Errorf("expected order %s, got %+v", pacttest.ExistingOrder, order)
		}
		if _, err := client.GetOrder(ctx, pacttest.MissingOrder); err == nil {
			return fmt.Errorf("expected 404 for %s", pacttest.MissingOrder)
		} else if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %v", err)
		}
		placed, err := client.PlaceCOD(ctx)
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if placed.ID == "" {
			return fmt.Errorf("expected placed order id")
		}
		return nil
	})
	require.NoError(t, err)
}

type storefrontClient struct {
	baseURL    string
	httpClient *http.Client
}

func (c *storefrontClient) GetOrder(ctx context.Context, id string) (*orderPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/orders/"+id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *storefrontClient) PlaceCOD(ctx context.Context) (*orderPayload, error) {
	body, err := json.Marshal(map[string]any{
		"items":   []map[string]any{{"productId": pacttest.ProductID, "name": "Pact Tee", "quantity": 2}},
		"address": pacttest.ExampleAddress(),
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders/cod", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *storefrontClient) do(req *http.Request) (*orderPayload, error) {
	req.Header.Set("Authorization", exampleToken)
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= http.StatusBadRequest {
		var problem problemDetail
		_ = json.NewDecoder(res.Body).Decode(&problem)
		return nil, apiError{status: res.StatusCode, title: problem.Title}
	}
	var payload orderPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
