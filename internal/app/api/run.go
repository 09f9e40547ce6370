package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	orderserver "github.com/Apurer/order-engine/go"
	"github.com/Apurer/order-engine/internal/app/jobs"
	trackingworkflows "github.com/Apurer/order-engine/internal/domains/tracking/adapters/workflows"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	platformobservability "github.com/Apurer/order-engine/internal/platform/observability"
)

const serviceName = "order-engine-api"

// Run boots the order engine HTTP API with observability, repositories, and workflows wired.
// It returns once ctx is cancelled and the server has drained.
func Run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName,
		platformobservability.WithLogLevel(cfg.LogLevel),
		platformobservability.WithLogFormat(cfg.LogFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	components, err := Build(ctx, cfg, instruments)
	if err != nil {
		return fmt.Errorf("failed to wire components: %w", err)
	}
	defer components.Close()

	var resync trackingports.Resync = trackingworkflows.NewInlineResync(components.Tracking)
	if temporalClient, err := ConnectTemporal(cfg, instruments, "temporal-client"); err != nil {
		logger.Warn("Temporal workflows unavailable, running jobs in-process", slog.String("error", err.Error()))
		scheduler := jobs.NewScheduler(components.Jobs, cfg.TrackingSyncInterval, cfg.SweepInterval)
		jobsCtx, stopJobs := context.WithCancel(ctx)
		scheduler.Start(jobsCtx)
		defer func() {
			stopJobs()
			scheduler.Wait()
		}()
	} else {
		defer temporalClient.Close()
		resync = trackingworkflows.NewTemporalResync(temporalClient)
		logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	}

	if cfg.JWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set, authenticated routes answer 401")
	}
	handlers := orderserver.ApiHandleFunctions{
		OrderAPI:   orderserver.NewOrderAPI(components.Orders, components.Tracking),
		AdminAPI:   orderserver.NewAdminAPI(components.Orders, resync, components.Carts),
		CartAPI:    orderserver.NewCartAPI(components.Carts),
		PaymentAPI: orderserver.NewPaymentAPI(components.Gateway),
	}
	router := orderserver.NewRouter(handlers,
		orderserver.WithMiddleware(otelgin.Middleware(serviceName)),
		orderserver.WithAuthenticator(orderserver.NewAuthenticator([]byte(cfg.JWTSecret))),
		orderserver.WithWebhookGuard(orderserver.RateLimit(cfg.WebhookRPS, cfg.WebhookBurst)),
		orderserver.WithMetricsHandler(components.Metrics.Handler()),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("order engine API listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("order engine API server exited", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		logger.Error("order engine API shutdown failed", slog.String("error", err.Error()))
		return err
	}
	logger.Info("order engine API stopped")
	return nil
}
