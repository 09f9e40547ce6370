package application

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	inventoryports "github.com/Apurer/order-engine/internal/domains/inventory/ports"
	notifyports "github.com/Apurer/order-engine/internal/domains/notifications/ports"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

// DefaultDeliveryFee is added to every order amount unless configured otherwise.
var DefaultDeliveryFee = decimal.NewFromInt(10)

// Service orchestrates order lifecycle use cases.
type Service struct {
	repo        ports.Repository
	ledger      inventoryports.Ledger
	carts       ports.Carts
	checkout    ports.CheckoutSessions
	notifier    notifyports.Sender
	logger      *slog.Logger
	deliveryFee decimal.Decimal
	currency    string
	now         func() time.Time
	newID       func() string
}

type Option func(*Service)

func WithCarts(carts ports.Carts) Option {
	return func(s *Service) { s.carts = carts }
}

func WithCheckout(checkout ports.CheckoutSessions) Option {
	return func(s *Service) { s.checkout = checkout }
}

func WithNotifier(sender notifyports.Sender) Option {
	return func(s *Service) { s.notifier = sender }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(s *Service) { s.deliveryFee = fee }
}

func WithCurrency(currency string) Option {
	return func(s *Service) {
		if currency != "" {
			s.currency = currency
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

func NewService(repo ports.Repository, ledger inventoryports.Ledger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		ledger:      ledger,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		deliveryFee: DefaultDeliveryFee,
		currency:    "usd",
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) warn(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

var _ ports.Service = (*Service)(nil)
