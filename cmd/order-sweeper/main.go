package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/Apurer/order-engine/internal/app/api"
	platformobservability "github.com/Apurer/order-engine/internal/platform/observability"
)

// order-sweeper runs one unpaid-order and abandoned-cart sweep and exits,
// for environments that schedule it with cron instead of Temporal.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := api.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, "order-engine-sweeper",
		platformobservability.WithLogLevel(cfg.LogLevel),
		platformobservability.WithLogFormat(cfg.LogFormat),
	)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() { _ = shutdown(context.Background()) }()
	logger := instruments.Logger

	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN not set; an in-memory sweep has nothing to do")
	}
	components, err := api.Build(ctx, cfg, instruments)
	if err != nil {
		log.Fatalf("failed to wire components: %v", err)
	}
	defer components.Close()

	unpaid, err := components.Jobs.SweepUnpaid(ctx)
	if err != nil {
		logger.Error("unpaid order sweep failed", slog.String("error", err.Error()))
	} else {
		logger.Info("unpaid order sweep completed",
			slog.Int("checked", unpaid.Checked), slog.Int("cancelled", unpaid.Cancelled),
			slog.Int("deleted", unpaid.Deleted), slog.Int("failed", unpaid.Failed))
	}
	abandoned, err := components.Jobs.SweepAbandoned(ctx)
	if err != nil {
		logger.Error("abandoned cart sweep failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("abandoned cart sweep completed",
		slog.Int("checked", abandoned.Checked), slog.Int("flagged", abandoned.Flagged), slog.Int("failed", abandoned.Failed))
}
