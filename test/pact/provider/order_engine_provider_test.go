//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	orderserver "github.com/Apurer/order-engine/go"
	cartmemory "github.com/Apurer/order-engine/internal/domains/carts/adapters/memory"
	cartapp "github.com/Apurer/order-engine/internal/domains/carts/application"
	inventorymemory "github.com/Apurer/order-engine/internal/domains/inventory/adapters/memory"
	inventoryapp "github.com/Apurer/order-engine/internal/domains/inventory/application"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	ordermemory "github.com/Apurer/order-engine/internal/domains/orders/adapters/memory"
	orderapp "github.com/Apurer/order-engine/internal/domains/orders/application"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	paymentmemory "github.com/Apurer/order-engine/internal/domains/payments/adapters/memory"
	paymentapp "github.com/Apurer/order-engine/internal/domains/payments/application"
	trackingmemory "github.com/Apurer/order-engine/internal/domains/tracking/adapters/memory"
	trackingworkflows "github.com/Apurer/order-engine/internal/domains/tracking/adapters/workflows"
	trackingapp "github.com/Apurer/order-engine/internal/domains/tracking/application"
	"github.com/Apurer/order-engine/internal/shared/identity"
	pacttest "github.com/Apurer/order-engine/test/pact"
)

var teePrice = decimal.RequireFromString("25.00")

func TestOrderEngineProviderPact(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	defer app.server.Close()
	pactFile := filepath.ToSlash(pacttest.PactFile(t, pacttest.StorefrontName, pacttest.EngineName))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	reset := func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
		app.reset()
		return nil, nil
	}
	verifier := pactprovider.NewVerifier()
	err := verifier.VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.EngineName,
		PactFiles:       []string{pactFile},
		StateHandlers: models.StateHandlers{
			pacttest.StateOrderMissing:  reset,
			pacttest.StateCatalogSeeded: reset,
			pacttest.StateOrderExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
				app.reset()
				if setup {
					return nil, app.seedOrder()
				}
				return nil, nil
			},
		},
		RequestFilter: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				r.Header.Set("Authorization", "Bearer "+app.token(t))
				next.ServeHTTP(w, r)
			})
		},
		BeforeEach: func() error {
			app.reset()
			return nil
		},
	})
	require.NoError(t, err)
}

type contractProviderApp struct {
	server *httptest.Server
	auth   *orderserver.Authenticator

	mu     sync.RWMutex
	router http.Handler
	orders *ordermemory.Repository
}

func newContractProviderApp(t *testing.T) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{auth: orderserver.NewAuthenticator([]byte(pacttest.JWTSecret))}
	app.reset()
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.RLock()
		router := app.router
		app.mu.RUnlock()
		router.ServeHTTP(w, r)
	}))
	return app
}

// reset rebuilds the in-memory engine so every interaction starts clean.
func (a *contractProviderApp) reset() {
	orders := ordermemory.NewRepository()
	stock := inventorymemory.NewRepository(&inventorydomain.Product{
		ID: pacttest.ProductID, Name: "Pact Tee", Price: teePrice, Stock: 10,
	})
	ledger := inventoryapp.NewLedger(stock)
	carts := cartapp.NewService(cartmemory.NewRepository())
	orderService := orderapp.NewService(orders, ledger, orderapp.WithCarts(carts))
	gateway := paymentapp.NewGateway([]byte("whsec_pact"), orders, ledger,
		paymentmemory.NewMarkerStore(), paymentmemory.NewClaimStore())
	synchronizer := trackingapp.NewSynchronizer(orders, trackingmemory.NewCarrier())

	router := orderserver.NewRouterWithGinEngine(gin.New(), orderserver.ApiHandleFunctions{
		OrderAPI:   orderserver.NewOrderAPI(orderService, synchronizer),
		AdminAPI:   orderserver.NewAdminAPI(orderService, trackingworkflows.NewInlineResync(synchronizer), carts),
		CartAPI:    orderserver.NewCartAPI(carts),
		PaymentAPI: orderserver.NewPaymentAPI(gateway),
	}, orderserver.WithAuthenticator(a.auth))

	a.mu.Lock()
	a.router, a.orders = router, orders
	a.mu.Unlock()
}

func (a *contractProviderApp) seedOrder() error {
	order, err := orderdomain.NewOrder(pacttest.ExistingOrder, pacttest.BuyerID,
		[]inventorydomain.PricedLine{{ProductID: pacttest.ProductID, Name: "Pact Tee", Quantity: 2, UnitPrice: teePrice}},
		orderdomain.Address{FullName: "Pact Buyer", Line1: "1 Contract Way", City: "Springfield", PostalCode: "12345", Country: "US"},
		orderdomain.PaymentCOD, orderapp.DefaultDeliveryFee, time.Now())
	if err != nil {
		return err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orders.Create(context.Background(), order)
}

func (a *contractProviderApp) token(t *testing.T) string {
	t.Helper()
	tok, err := a.auth.Issue(pacttest.BuyerID, identity.RoleBuyer, time.Hour)
	require.NoError(t, err)
	return tok
}
