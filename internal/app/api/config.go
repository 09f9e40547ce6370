package api

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.temporal.io/sdk/client"

	"github.com/Apurer/order-engine/internal/app/jobs"
	orderapp "github.com/Apurer/order-engine/internal/domains/orders/application"
)

const (
	defaultWebhookTolerance = 5 * time.Minute
	defaultTrackingInterval = 15 * time.Minute
	defaultSweepInterval    = 10 * time.Minute
)

// Config carries environment-driven settings shared by the API, worker and sweeper.
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	LogFormat   string

	PostgresDSN       string
	RedisAddr         string
	TemporalAddress   string
	TemporalNamespace string
	TemporalDisabled  bool
	RabbitMQURL       string
	NotifyExchange    string

	JWTSecret        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	WebhookRPS       float64
	WebhookBurst     int

	CheckoutBaseURL    string
	CheckoutAPIKey     string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
	Currency           string

	CarrierBaseURL     string
	CarrierAPIKey      string
	CarrierMaxAttempts int

	DeliveryFee          decimal.Decimal
	UnpaidOrderTimeout   time.Duration
	AbandonedCartAfter   time.Duration
	TrackingSyncInterval time.Duration
	SweepInterval        time.Duration
}

// Local reports whether the process runs on a developer machine, where
// secrets may be left unset.
func (c Config) Local() bool { return c.Environment == "local" }

// LoadConfig reads environment variables, applies defaults, and validates basic constraints.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	cfg := Config{
		Environment:        strings.ToLower(env("ENVIRONMENT", "local")),
		Port:               env("PORT", "8080"),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFormat:          env("LOG_FORMAT", "json"),
		PostgresDSN:        env("POSTGRES_DSN", ""),
		RedisAddr:          env("REDIS_ADDR", ""),
		TemporalAddress:    env("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace:  env("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:   isTruthy(getenv("TEMPORAL_DISABLED")),
		RabbitMQURL:        env("RABBITMQ_URL", ""),
		NotifyExchange:     env("NOTIFY_EXCHANGE", "order-engine.notifications"),
		JWTSecret:          env("AUTH_JWT_SECRET", ""),
		WebhookSecret:      env("PAYMENT_WEBHOOK_SECRET", ""),
		CheckoutBaseURL:    env("CHECKOUT_BASE_URL", ""),
		CheckoutAPIKey:     env("CHECKOUT_API_KEY", ""),
		CheckoutSuccessURL: env("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CheckoutCancelURL:  env("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),
		Currency:           strings.ToLower(env("CURRENCY", "usd")),
		CarrierBaseURL:     env("CARRIER_BASE_URL", ""),
		CarrierAPIKey:      env("CARRIER_API_KEY", ""),
	}

	var errs []error
	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"PAYMENT_WEBHOOK_TOLERANCE", defaultWebhookTolerance, &cfg.WebhookTolerance},
		{"UNPAID_ORDER_TIMEOUT", jobs.DefaultUnpaidAfter, &cfg.UnpaidOrderTimeout},
		{"ABANDONED_CART_AFTER", jobs.DefaultAbandonedAfter, &cfg.AbandonedCartAfter},
		{"TRACKING_SYNC_INTERVAL", defaultTrackingInterval, &cfg.TrackingSyncInterval},
		{"SWEEP_INTERVAL", defaultSweepInterval, &cfg.SweepInterval},
	}
	for _, d := range durations {
		value, err := positiveDuration(getenv(d.key), d.fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %w", d.key, err))
		}
		*d.dst = value
	}

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"CARRIER_MAX_ATTEMPTS", 3, &cfg.CarrierMaxAttempts},
		{"PAYMENT_WEBHOOK_BURST", 100, &cfg.WebhookBurst},
	}
	for _, n := range ints {
		value, err := positiveInt(getenv(n.key), n.fallback)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %w", n.key, err))
		}
		*n.dst = value
	}

	cfg.WebhookRPS = 50
	if raw := strings.TrimSpace(getenv("PAYMENT_WEBHOOK_RPS")); raw != "" {
		rps, err := strconv.ParseFloat(raw, 64)
		if err != nil || rps <= 0 {
			errs = append(errs, errors.New("PAYMENT_WEBHOOK_RPS must be a positive number"))
		} else {
			cfg.WebhookRPS = rps
		}
	}

	cfg.DeliveryFee = orderapp.DefaultDeliveryFee
	if raw := strings.TrimSpace(getenv("DELIVERY_FEE")); raw != "" {
		fee, err := decimal.NewFromString(raw)
		if err != nil || fee.IsNegative() {
			errs = append(errs, errors.New("DELIVERY_FEE must be a non-negative decimal"))
		} else {
			cfg.DeliveryFee = fee
		}
	}

	if !cfg.Local() {
		if cfg.WebhookSecret == "" {
			errs = append(errs, errors.New("PAYMENT_WEBHOOK_SECRET is required outside ENVIRONMENT=local"))
		}
		if cfg.JWTSecret == "" {
			errs = append(errs, errors.New("AUTH_JWT_SECRET is required outside ENVIRONMENT=local"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func positiveDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback, errors.New("must be a positive duration such as 30m")
	}
	return d, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback, errors.New("must be a positive integer")
	}
	return n, nil
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}
