package orderserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Access decides which middleware chain guards a route.
type Access int

const (
	AccessPublic Access = iota
	AccessBuyer
	AccessAdmin
	AccessWebhook
)

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// Access selects the guard applied before HandlerFunc.
	Access Access
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

type routerConfig struct {
	auth       *Authenticator
	webhook    gin.HandlerFunc
	metrics    http.Handler
	middleware []gin.HandlerFunc
}

type RouterOption func(*routerConfig)

// WithAuthenticator guards buyer and admin routes. Without one every guarded
// route answers 401.
func WithAuthenticator(auth *Authenticator) RouterOption {
	return func(c *routerConfig) { c.auth = auth }
}

// WithWebhookGuard runs before the payment webhook handler, typically a rate limiter.
func WithWebhookGuard(guard gin.HandlerFunc) RouterOption {
	return func(c *routerConfig) { c.webhook = guard }
}

// WithMetricsHandler mounts a scrape endpoint at /metrics.
func WithMetricsHandler(h http.Handler) RouterOption {
	return func(c *routerConfig) { c.metrics = h }
}

// WithMiddleware installs engine-wide middleware ahead of the routes.
func WithMiddleware(mw ...gin.HandlerFunc) RouterOption {
	return func(c *routerConfig) { c.middleware = append(c.middleware, mw...) }
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions, opts ...RouterOption) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions, opts...)
}

// NewRouterWithGinEngine add routes to existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions, opts ...RouterOption) *gin.Engine {
	cfg := &routerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	router.Use(cfg.middleware...)
	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.metrics))
	}
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		chain := append(cfg.guards(route.Access), route.HandlerFunc)
		router.Handle(route.Method, route.Pattern, chain...)
	}
	return router
}

func (c *routerConfig) guards(access Access) []gin.HandlerFunc {
	switch access {
	case AccessBuyer:
		return []gin.HandlerFunc{c.auth.Authenticate()}
	case AccessAdmin:
		return []gin.HandlerFunc{c.auth.Authenticate(), RequireAdmin()}
	case AccessWebhook:
		if c.webhook != nil {
			return []gin.HandlerFunc{c.webhook}
		}
	}
	return nil
}

// Default handler for not yet implemented routes
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

type ApiHandleFunctions struct {

	// Routes for the OrderAPI part of the API
	OrderAPI OrderAPI
	// Routes for the AdminAPI part of the API
	AdminAPI AdminAPI
	// Routes for the CartAPI part of the API
	CartAPI CartAPI
	// Routes for the PaymentAPI part of the API
	PaymentAPI PaymentAPI
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	return []Route{
		{
			"PlaceCODOrder",
			http.MethodPost,
			"/v1/orders/cod",
			AccessBuyer,
			handleFunctions.OrderAPI.PlaceCODOrder,
		},
		{
			"PlaceOnlineOrder",
			http.MethodPost,
			"/v1/orders/online",
			AccessBuyer,
			handleFunctions.OrderAPI.PlaceOnlineOrder,
		},
		{
			"ListOrders",
			http.MethodGet,
			"/v1/orders",
			AccessBuyer,
			handleFunctions.OrderAPI.ListOrders,
		},
		{
			"GetOrder",
			http.MethodGet,
			"/v1/orders/:orderId",
			AccessBuyer,
			handleFunctions.OrderAPI.GetOrder,
		},
		{
			"CancelOrder",
			http.MethodPost,
			"/v1/orders/:orderId/cancel",
			AccessBuyer,
			handleFunctions.OrderAPI.CancelOrder,
		},
		{
			"GetInvoice",
			http.MethodGet,
			"/v1/orders/:orderId/invoice",
			AccessBuyer,
			handleFunctions.OrderAPI.GetInvoice,
		},
		{
			"GetTracking",
			http.MethodGet,
			"/v1/orders/:orderId/tracking",
			AccessBuyer,
			handleFunctions.OrderAPI.GetTracking,
		},
		{
			"VerifyPayment",
			http.MethodPost,
			"/v1/orders/:orderId/payment/verify",
			AccessBuyer,
			handleFunctions.PaymentAPI.VerifyPayment,
		},
		{
			"HandlePaymentWebhook",
			http.MethodPost,
			"/v1/payments/webhook",
			AccessWebhook,
			handleFunctions.PaymentAPI.HandleWebhook,
		},
		{
			"GetCart",
			http.MethodGet,
			"/v1/cart",
			AccessBuyer,
			handleFunctions.CartAPI.GetCart,
		},
		{
			"PutCart",
			http.MethodPut,
			"/v1/cart",
			AccessBuyer,
			handleFunctions.CartAPI.PutCart,
		},
		{
			"ClearCart",
			http.MethodDelete,
			"/v1/cart",
			AccessBuyer,
			handleFunctions.CartAPI.ClearCart,
		},
		{
			"AdminListOrders",
			http.MethodGet,
			"/v1/admin/orders",
			AccessAdmin,
			handleFunctions.AdminAPI.ListOrders,
		},
		{
			"AdminUpdateStatus",
			http.MethodPatch,
			"/v1/admin/orders/:orderId/status",
			AccessAdmin,
			handleFunctions.AdminAPI.UpdateStatus,
		},
		{
			"AdminAssignTracking",
			http.MethodPost,
			"/v1/admin/orders/:orderId/tracking",
			AccessAdmin,
			handleFunctions.AdminAPI.AssignTracking,
		},
		{
			"AdminResyncTracking",
			http.MethodPost,
			"/v1/admin/orders/:orderId/tracking/resync",
			AccessAdmin,
			handleFunctions.AdminAPI.ResyncTracking,
		},
		{
			"AdminStats",
			http.MethodGet,
			"/v1/admin/stats",
			AccessAdmin,
			handleFunctions.AdminAPI.Stats,
		},
		{
			"AdminListAbandonedCarts",
			http.MethodGet,
			"/v1/admin/carts/abandoned",
			AccessAdmin,
			handleFunctions.AdminAPI.ListAbandonedCarts,
		},
	}
}
