package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"
	"gorm.io/gorm"

	"github.com/Apurer/order-engine/internal/app/jobs"
	carrierclient "github.com/Apurer/order-engine/internal/clients/http/carrier"
	checkoutclient "github.com/Apurer/order-engine/internal/clients/http/checkout"
	cartmemory "github.com/Apurer/order-engine/internal/domains/carts/adapters/memory"
	cartpostgres "github.com/Apurer/order-engine/internal/domains/carts/adapters/persistence/postgres"
	cartapp "github.com/Apurer/order-engine/internal/domains/carts/application"
	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	inventorymemory "github.com/Apurer/order-engine/internal/domains/inventory/adapters/memory"
	inventoryobs "github.com/Apurer/order-engine/internal/domains/inventory/adapters/observability"
	inventorypostgres "github.com/Apurer/order-engine/internal/domains/inventory/adapters/persistence/postgres"
	inventoryapp "github.com/Apurer/order-engine/internal/domains/inventory/application"
	inventoryports "github.com/Apurer/order-engine/internal/domains/inventory/ports"
	notifylogging "github.com/Apurer/order-engine/internal/domains/notifications/adapters/logging"
	notifyrabbit "github.com/Apurer/order-engine/internal/domains/notifications/adapters/rabbitmq"
	notifyapp "github.com/Apurer/order-engine/internal/domains/notifications/application"
	notifyports "github.com/Apurer/order-engine/internal/domains/notifications/ports"
	ordercheckout "github.com/Apurer/order-engine/internal/domains/orders/adapters/external/checkout"
	ordermemory "github.com/Apurer/order-engine/internal/domains/orders/adapters/memory"
	orderobs "github.com/Apurer/order-engine/internal/domains/orders/adapters/observability"
	orderpostgres "github.com/Apurer/order-engine/internal/domains/orders/adapters/persistence/postgres"
	orderapp "github.com/Apurer/order-engine/internal/domains/orders/application"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	paymentcheckout "github.com/Apurer/order-engine/internal/domains/payments/adapters/external/checkout"
	paymentlogging "github.com/Apurer/order-engine/internal/domains/payments/adapters/logging"
	paymentmemory "github.com/Apurer/order-engine/internal/domains/payments/adapters/memory"
	paymentobs "github.com/Apurer/order-engine/internal/domains/payments/adapters/observability"
	paymentpostgres "github.com/Apurer/order-engine/internal/domains/payments/adapters/persistence/postgres"
	paymentredis "github.com/Apurer/order-engine/internal/domains/payments/adapters/redis"
	paymentapp "github.com/Apurer/order-engine/internal/domains/payments/application"
	paymentports "github.com/Apurer/order-engine/internal/domains/payments/ports"
	trackingcarrier "github.com/Apurer/order-engine/internal/domains/tracking/adapters/external/carrier"
	trackingmemory "github.com/Apurer/order-engine/internal/domains/tracking/adapters/memory"
	trackingobs "github.com/Apurer/order-engine/internal/domains/tracking/adapters/observability"
	trackingretry "github.com/Apurer/order-engine/internal/domains/tracking/adapters/retry"
	trackingapp "github.com/Apurer/order-engine/internal/domains/tracking/application"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	"github.com/Apurer/order-engine/internal/platform/metrics"
	"github.com/Apurer/order-engine/internal/platform/migrations"
	platformobservability "github.com/Apurer/order-engine/internal/platform/observability"
	platformpostgres "github.com/Apurer/order-engine/internal/platform/postgres"
	platformredis "github.com/Apurer/order-engine/internal/platform/redis"
)

const upstreamTimeout = 10 * time.Second

// Components is the wired application graph shared by every process.
type Components struct {
	Logger     *slog.Logger
	Metrics    *metrics.Registry
	Orders     orderports.Service
	Carts      cartports.Service
	Gateway    paymentports.Gateway
	Tracking   trackingports.Synchronizer
	Jobs       *jobs.Runner
	Dispatcher *notifyapp.Dispatcher

	closers []func()
}

// Close waits for in-flight notifications and releases connections in reverse order.
func (c *Components) Close() {
	if c.Dispatcher != nil {
		c.Dispatcher.Wait()
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// Build wires repositories, clients and services for cfg. Unreachable
// infrastructure degrades to in-memory or logging adapters with a warning.
func Build(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Components, error) {
	logger := instruments.Logger
	c := &Components{Logger: logger, Metrics: metrics.New()}

	db, closeDB := platformpostgres.ConnectOrFallback(ctx, cfg.PostgresDSN, logger)
	c.closers = append(c.closers, closeDB)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			c.Close()
			return nil, err
		}
	}
	stock, orderRepo, cartRepo, markers := buildStores(db)

	redisClient, closeRedis := platformredis.ConnectOrFallback(ctx, cfg.RedisAddr, logger)
	c.closers = append(c.closers, closeRedis)
	var claims paymentports.ClaimStore = paymentmemory.NewClaimStore()
	if redisClient != nil {
		claims = paymentredis.NewClaimStore(redisClient)
	}

	c.Dispatcher = notifyapp.NewDispatcher(c.buildNotifier(cfg), notifyapp.WithLogger(logger))
	var sender notifyports.Sender = c.Dispatcher

	ledger := inventoryobs.New(
		inventoryapp.NewLedger(stock, inventoryapp.WithLogger(logger)),
		inventoryobs.WithLogger(logger),
		inventoryobs.WithTracer(instruments.Tracer("internal.domains.inventory.application")),
		inventoryobs.WithMeter(instruments.Meter("internal.domains.inventory.application")),
	)

	carts := cartapp.NewService(cartRepo, cartapp.WithNotifier(sender), cartapp.WithLogger(logger))
	c.Carts = carts

	httpClient := &http.Client{Timeout: upstreamTimeout}
	orderOpts := []orderapp.Option{
		orderapp.WithCarts(carts),
		orderapp.WithNotifier(sender),
		orderapp.WithLogger(logger),
		orderapp.WithDeliveryFee(cfg.DeliveryFee),
		orderapp.WithCurrency(cfg.Currency),
	}
	gatewayOpts := []paymentapp.Option{
		paymentapp.WithTolerance(cfg.WebhookTolerance),
		paymentapp.WithCarts(carts),
		paymentapp.WithLoyalty(paymentlogging.NewLoyalty(logger)),
		paymentapp.WithNotifier(sender),
		paymentapp.WithLogger(logger),
	}
	if cfg.CheckoutBaseURL != "" {
		checkout, err := checkoutclient.NewCheckoutClient(cfg.CheckoutBaseURL, cfg.CheckoutAPIKey, httpClient)
		if err != nil {
			c.Close()
			return nil, err
		}
		orderOpts = append(orderOpts, orderapp.WithCheckout(ordercheckout.NewSessions(checkout, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)))
		gatewayOpts = append(gatewayOpts, paymentapp.WithSessions(paymentcheckout.NewLookup(checkout)))
	} else {
		logger.Warn("CHECKOUT_BASE_URL not set, online orders are refused")
	}

	c.Orders = orderobs.New(
		orderapp.NewService(orderRepo, ledger, orderOpts...),
		orderobs.WithLogger(logger),
		orderobs.WithTracer(instruments.Tracer("internal.domains.orders.application")),
		orderobs.WithMeter(instruments.Meter("internal.domains.orders.application")),
	)

	secret := []byte(cfg.WebhookSecret)
	if len(secret) == 0 {
		logger.Warn("PAYMENT_WEBHOOK_SECRET not set, every webhook delivery will be rejected")
	}
	c.Gateway = paymentobs.New(
		paymentapp.NewGateway(secret, orderRepo, ledger, markers, claims, gatewayOpts...),
		paymentobs.WithLogger(logger),
		paymentobs.WithTracer(instruments.Tracer("internal.domains.payments.application")),
		paymentobs.WithMeter(instruments.Meter("internal.domains.payments.application")),
		paymentobs.WithOutcomes(c.Metrics),
	)

	carrier, err := c.buildCarrier(cfg, httpClient)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Tracking = trackingobs.New(
		trackingapp.NewSynchronizer(orderRepo, carrier, trackingapp.WithNotifier(sender), trackingapp.WithLogger(logger)),
		trackingobs.WithLogger(logger),
		trackingobs.WithTracer(instruments.Tracer("internal.domains.tracking.application")),
		trackingobs.WithMeter(instruments.Meter("internal.domains.tracking.application")),
	)

	c.Jobs = jobs.NewRunner(c.Tracking, c.Orders,
		jobs.WithCarts(carts),
		jobs.WithUnpaidAfter(cfg.UnpaidOrderTimeout),
		jobs.WithAbandonedAfter(cfg.AbandonedCartAfter),
		jobs.WithRecorder(c.Metrics),
		jobs.WithLogger(logger),
	)
	return c, nil
}

func buildStores(db *gorm.DB) (inventoryports.StockRepository, orderports.Repository, cartports.Repository, paymentports.MarkerStore) {
	if db == nil {
		return inventorymemory.NewRepository(), ordermemory.NewRepository(), cartmemory.NewRepository(), paymentmemory.NewMarkerStore()
	}
	return inventorypostgres.NewRepository(db), orderpostgres.NewRepository(db), cartpostgres.NewRepository(db), paymentpostgres.NewMarkerStore(db)
}

func (c *Components) buildNotifier(cfg Config) notifyports.Notifier {
	if cfg.RabbitMQURL == "" {
		c.Logger.Warn("RABBITMQ_URL not set, notifications are logged only")
		return notifylogging.NewNotifier(c.Logger)
	}
	notifier, err := notifyrabbit.Dial(cfg.RabbitMQURL, cfg.NotifyExchange)
	if err != nil {
		c.Logger.Warn("failed to connect to rabbitmq, notifications are logged only", slog.String("error", err.Error()))
		return notifylogging.NewNotifier(c.Logger)
	}
	c.closers = append(c.closers, func() { _ = notifier.Close() })
	c.Logger.Info("notifications published to rabbitmq", slog.String("exchange", cfg.NotifyExchange))
	return notifier
}

func (c *Components) buildCarrier(cfg Config, httpClient *http.Client) (trackingports.Carrier, error) {
	if cfg.CarrierBaseURL == "" {
		c.Logger.Warn("CARRIER_BASE_URL not set, tracking lookups report unknown shipments")
		return trackingmemory.NewCarrier(), nil
	}
	client, err := carrierclient.NewCarrierClient(cfg.CarrierBaseURL, cfg.CarrierAPIKey, httpClient)
	if err != nil {
		return nil, err
	}
	return trackingretry.New(trackingcarrier.NewFetcher(client),
		trackingretry.WithMaxAttempts(cfg.CarrierMaxAttempts),
		trackingretry.WithLogger(c.Logger),
		trackingretry.WithRecorder(c.Metrics),
	), nil
}

// ConnectTemporal dials the Temporal frontend with tracing and slog wired in.
func ConnectTemporal(cfg Config, instruments *platformobservability.Instruments, tracerName string) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{
		Tracer: instruments.Tracer(tracerName),
	})
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(instruments.Logger),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
