package orderserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartmemory "github.com/Apurer/order-engine/internal/domains/carts/adapters/memory"
	cartmapper "github.com/Apurer/order-engine/internal/domains/carts/adapters/http/mapper"
	cartapp "github.com/Apurer/order-engine/internal/domains/carts/application"
	inventorymemory "github.com/Apurer/order-engine/internal/domains/inventory/adapters/memory"
	inventoryapp "github.com/Apurer/order-engine/internal/domains/inventory/application"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	ordermapper "github.com/Apurer/order-engine/internal/domains/orders/adapters/http/mapper"
	ordermemory "github.com/Apurer/order-engine/internal/domains/orders/adapters/memory"
	orderapp "github.com/Apurer/order-engine/internal/domains/orders/application"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	paymentmapper "github.com/Apurer/order-engine/internal/domains/payments/adapters/http/mapper"
	paymentmemory "github.com/Apurer/order-engine/internal/domains/payments/adapters/memory"
	paymentapp "github.com/Apurer/order-engine/internal/domains/payments/application"
	paymentdomain "github.com/Apurer/order-engine/internal/domains/payments/domain"
	trackingmapper "github.com/Apurer/order-engine/internal/domains/tracking/adapters/http/mapper"
	trackingmemory "github.com/Apurer/order-engine/internal/domains/tracking/adapters/memory"
	trackingworkflows "github.com/Apurer/order-engine/internal/domains/tracking/adapters/workflows"
	trackingapp "github.com/Apurer/order-engine/internal/domains/tracking/application"
	trackingdomain "github.com/Apurer/order-engine/internal/domains/tracking/domain"
	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

var (
	jwtSecret     = []byte("jwt-test-secret")
	webhookSecret = []byte("whsec_test")
	now           = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

type stubCheckout struct{}

func (stubCheckout) CreateSession(_ context.Context, req orderports.CheckoutRequest) (*orderports.CheckoutSession, error) {
	return &orderports.CheckoutSession{ID: "cs_" + req.OrderID, URL: "https://pay.example/" + req.OrderID}, nil
}

type server struct {
	router  *gin.Engine
	auth    *Authenticator
	orders  *ordermemory.Repository
	stock   *inventorymemory.Repository
	carrier *trackingmemory.Carrier
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := func() time.Time { return now }
	s := &server{
		auth:   NewAuthenticator(jwtSecret),
		orders: ordermemory.NewRepository(),
		stock: inventorymemory.NewRepository(
			&inventorydomain.Product{ID: "tee", Name: "Tee", Price: decimal.RequireFromString("25.00"), Stock: 3},
		),
		carrier: trackingmemory.NewCarrier(),
	}
	s.auth.now = clock
	ledger := inventoryapp.NewLedger(s.stock)
	carts := cartapp.NewService(cartmemory.NewRepository(), cartapp.WithClock(clock))
	var seq atomic.Int64
	orders := orderapp.NewService(s.orders, ledger,
		orderapp.WithCarts(carts),
		orderapp.WithCheckout(stubCheckout{}),
		orderapp.WithClock(clock),
		orderapp.WithIDGenerator(func() string { return fmt.Sprintf("order-%d", seq.Add(1)) }),
	)
	gateway := paymentapp.NewGateway(webhookSecret, s.orders, ledger,
		paymentmemory.NewMarkerStore(), paymentmemory.NewClaimStore(),
		paymentapp.WithCarts(carts),
		paymentapp.WithClock(clock),
	)
	sync := trackingapp.NewSynchronizer(s.orders, s.carrier, trackingapp.WithClock(clock))

	handlers := ApiHandleFunctions{
		OrderAPI:   NewOrderAPI(orders, sync),
		AdminAPI:   NewAdminAPI(orders, trackingworkflows.NewInlineResync(sync), carts),
		CartAPI:    NewCartAPI(carts),
		PaymentAPI: NewPaymentAPI(gateway),
	}
	s.router = NewRouterWithGinEngine(gin.New(), handlers, WithAuthenticator(s.auth))
	return s
}

func (s *server) token(t *testing.T, sub string, role identity.Role) string {
	t.Helper()
	tok, err := s.auth.Issue(sub, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *server) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func placement(qty int) ordermapper.PlaceOrderRequest {
	return ordermapper.PlaceOrderRequest{
		Items:   []ordermapper.CartItem{{ProductID: "tee", Name: "Tee", Quantity: qty}},
		Address: orderdomain.Address{FullName: "Ada Buyer", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	}
}

func TestHealthz(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthentication(t *testing.T) {
	s := newServer(t)
	expired, err := s.auth.Issue("buyer-1", identity.RoleBuyer, -time.Minute)
	require.NoError(t, err)
	forged, err := NewAuthenticator([]byte("other")).Issue("buyer-1", identity.RoleBuyer, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing token", "/v1/orders", "", http.StatusUnauthorized},
		{"expired token", "/v1/orders", expired, http.StatusUnauthorized},
		{"wrong key", "/v1/orders", forged, http.StatusUnauthorized},
		{"system role rejected", "/v1/orders", s.token(t, "cron", identity.RoleSystem), http.StatusUnauthorized},
		{"buyer ok", "/v1/orders", s.token(t, "buyer-1", identity.RoleBuyer), http.StatusOK},
		{"buyer on admin route", "/v1/admin/stats", s.token(t, "buyer-1", identity.RoleBuyer), http.StatusForbidden},
		{"admin ok", "/v1/admin/stats", s.token(t, "ops", identity.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tc.path, tc.token, nil)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.status >= 400 {
				assert.Equal(t, apierrors.ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestPlaceCODOrder(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)

	rec := s.do(t, http.MethodPost, "/v1/orders/cod", buyer, placement(2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[ordermapper.Order](t, rec)
	assert.Equal(t, "Placed", order.Status)
	assert.Equal(t, "cod", order.PaymentMethod)
	assert.Equal(t, "60.00", order.Amount)
	assert.Equal(t, 1, s.stock.Stock("tee"))

	rec = s.do(t, http.MethodGet, "/v1/orders/"+order.ID, buyer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders/"+order.ID, s.token(t, "buyer-2", identity.RoleBuyer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/orders/"+order.ID+"/invoice", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-"+order.ID)
	assert.Contains(t, rec.Body.String(), order.ID)

	rec = s.do(t, http.MethodGet, "/v1/orders", buyer, nil)
	list := decode[struct {
		Orders []ordermapper.Order `json:"orders"`
	}](t, rec)
	assert.Len(t, list.Orders, 1)
}

func TestPlaceCODOrder_InsufficientStock(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodPost, "/v1/orders/cod", s.token(t, "buyer-1", identity.RoleBuyer), placement(4))
	require.Equal(t, http.StatusConflict, rec.Code)
	problem := decode[apierrors.ProblemDetail](t, rec)
	assert.Equal(t, apierrors.TypeInsufficient, problem.Type)
	assert.Equal(t, "tee", problem.Extensions["productId"])
	assert.EqualValues(t, 3, problem.Extensions["available"])
	assert.Equal(t, 3, s.stock.Stock("tee"))
}

func TestPlaceOrder_BadBody(t *testing.T) {
	s := newServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/orders/cod", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+s.token(t, "buyer-1", identity.RoleBuyer))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelOrder(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)
	order := decode[ordermapper.Order](t, s.do(t, http.MethodPost, "/v1/orders/cod", buyer, placement(1)))

	rec := s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Cancelled", decode[ordermapper.Order](t, rec).Status)
	assert.Equal(t, 3, s.stock.Stock("tee"))

	rec = s.do(t, http.MethodPost, "/v1/orders/"+order.ID+"/cancel", buyer, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOnlineOrderWebhook(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)

	rec := s.do(t, http.MethodPost, "/v1/orders/online", buyer, placement(1))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkout := decode[ordermapper.OnlineCheckout](t, rec)
	assert.NotEmpty(t, checkout.RedirectURL)
	assert.False(t, checkout.Order.Paid)
	assert.Equal(t, 3, s.stock.Stock("tee"), "online placement does not reserve stock")

	body := []byte(fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","created":%d,"data":{"object":{"id":%q,"payment_status":"paid","metadata":{"orderId":%q,"buyerId":"buyer-1"}}}}`,
		now.Unix(), checkout.SessionID, checkout.Order.ID))
	post := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, signature)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		return rec
	}

	rec = post("t=1,v1=deadbeef")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, apierrors.TypeSignature, decode[apierrors.ProblemDetail](t, rec).Type)

	rec = post(paymentdomain.SignatureFor(webhookSecret, now, body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(paymentdomain.OutcomeConfirmed), decode[paymentmapper.Result](t, rec).Outcome)

	rec = post(paymentdomain.SignatureFor(webhookSecret, now, body))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(paymentdomain.OutcomeDuplicate), decode[paymentmapper.Result](t, rec).Outcome)

	assert.Equal(t, 2, s.stock.Stock("tee"), "stock decremented once")
	order := decode[ordermapper.Order](t, s.do(t, http.MethodGet, "/v1/orders/"+checkout.Order.ID, buyer, nil))
	assert.True(t, order.Paid)
	assert.Equal(t, "Packing", order.Status)
}

func TestWebhook_SoldOutAcknowledgesReconciliation(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)
	checkout := decode[ordermapper.OnlineCheckout](t, s.do(t, http.MethodPost, "/v1/orders/online", buyer, placement(3)))
	// someone else buys the last units by cash first
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/v1/orders/cod", s.token(t, "buyer-2", identity.RoleBuyer), placement(3)).Code)

	body := []byte(fmt.Sprintf(`{"id":"evt_9","type":"checkout.session.completed","created":%d,"data":{"object":{"id":%q,"payment_status":"paid","metadata":{"orderId":%q,"buyerId":"buyer-1"}}}}`,
		now.Unix(), checkout.SessionID, checkout.Order.ID))
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, paymentdomain.SignatureFor(webhookSecret, now, body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(paymentdomain.OutcomeReconciliation), decode[paymentmapper.Result](t, rec).Outcome)
	order := decode[ordermapper.Order](t, s.do(t, http.MethodGet, "/v1/orders/"+checkout.Order.ID, buyer, nil))
	assert.True(t, order.Paid)
	assert.True(t, order.ReconciliationRequired)
	assert.Equal(t, "Placed", order.Status)
}

func TestAdminFulfilment(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)
	admin := s.token(t, "ops", identity.RoleAdmin)
	order := decode[ordermapper.Order](t, s.do(t, http.MethodPost, "/v1/orders/cod", buyer, placement(1)))
	base := "/v1/admin/orders/" + order.ID

	rec := s.do(t, http.MethodPatch, base+"/status", admin, ordermapper.UpdateStatusRequest{Status: "Delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code, "undefined edge")

	rec = s.do(t, http.MethodPatch, base+"/status", admin, ordermapper.UpdateStatusRequest{Status: "Packing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, base+"/tracking", admin, ordermapper.AssignTrackingRequest{TrackingNumber: "1Z999", Courier: "UPS"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shipped := decode[ordermapper.Order](t, rec)
	assert.Equal(t, "Shipped", shipped.Status)
	assert.Contains(t, shipped.Tracking.URL, "1Z999")

	at := now.Add(-time.Hour)
	s.carrier.Set("1Z999", &trackingdomain.Record{
		Number: "1Z999", Courier: "ups", Tag: "Delivered",
		Checkpoints: []trackingdomain.Checkpoint{{Tag: "Delivered", Message: "Left at door", At: at}},
	})

	rec = s.do(t, http.MethodGet, "/v1/orders/"+order.ID+"/tracking", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	live := decode[trackingmapper.Tracking](t, rec)
	assert.Equal(t, "Delivered", live.Tag)
	require.Len(t, live.Checkpoints, 1)

	rec = s.do(t, http.MethodPost, base+"/tracking/resync", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[trackingmapper.ResyncResult](t, rec)
	assert.True(t, result.Changed)
	assert.Equal(t, "Delivered", result.To)

	delivered := decode[ordermapper.Order](t, s.do(t, http.MethodGet, "/v1/orders/"+order.ID, buyer, nil))
	assert.Equal(t, "Delivered", delivered.Status)
	assert.True(t, delivered.Paid, "cash collected on delivery")

	rec = s.do(t, http.MethodGet, "/v1/admin/orders?page=1&pageSize=10&status=Delivered", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[ordermapper.OrderPage](t, rec)
	assert.EqualValues(t, 1, page.Total)

	rec = s.do(t, http.MethodGet, "/v1/admin/orders?page=x", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stats := decode[ordermapper.Stats](t, s.do(t, http.MethodGet, "/v1/admin/stats", admin, nil))
	assert.EqualValues(t, 1, stats.Total)
	assert.Equal(t, "35.00", stats.PaidRevenue)
}

func TestCart(t *testing.T) {
	s := newServer(t)
	buyer := s.token(t, "buyer-1", identity.RoleBuyer)

	rec := s.do(t, http.MethodGet, "/v1/cart", buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartmapper.Cart](t, rec).Items)

	rec = s.do(t, http.MethodPut, "/v1/cart", buyer, cartmapper.PutCartRequest{Items: []ordermapper.CartItem{{ProductID: "tee", Name: "Tee", Quantity: 2}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cart := decode[cartmapper.Cart](t, rec)
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.UpdatedAt)

	rec = s.do(t, http.MethodPut, "/v1/cart", buyer, cartmapper.PutCartRequest{Items: []ordermapper.CartItem{{ProductID: "tee", Quantity: 0}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/v1/cart", buyer, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, decode[cartmapper.Cart](t, s.do(t, http.MethodGet, "/v1/cart", buyer, nil)).Items)

	rec = s.do(t, http.MethodGet, "/v1/admin/carts/abandoned?status=bogus", s.token(t, "ops", identity.RoleAdmin), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/hook", RateLimit(0.001, 1), func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/hook", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/hook", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
