package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Apurer/order-engine/internal/domains/carts/domain"
	"github.com/Apurer/order-engine/internal/domains/carts/ports"
	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	notifyports "github.com/Apurer/order-engine/internal/domains/notifications/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

type Service struct {
	repo     ports.Repository
	notifier notifyports.Sender
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Service)

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

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo ports.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Put replaces the caller's cart. An empty item list clears it.
func (s *Service) Put(ctx context.Context, actor identity.Actor, items []inventorydomain.Line) (*domain.Cart, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("buyer identity required")
	}
	if len(items) == 0 {
		if err := s.repo.Clear(ctx, actor.ID); err != nil {
			return nil, err
		}
		return &domain.Cart{BuyerID: actor.ID, UpdatedAt: s.now().UTC()}, nil
	}
	cart, err := domain.NewCart(actor.ID, items, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", failure.ErrValidation, err)
	}
	if err := s.repo.Put(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Get(ctx context.Context, actor identity.Actor) (*domain.Cart, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("buyer identity required")
	}
	cart, err := s.repo.Get(ctx, actor.ID)
	if errors.Is(err, ports.ErrNotFound) {
		return &domain.Cart{BuyerID: actor.ID}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Service) Clear(ctx context.Context, buyerID string) error {
	return s.repo.Clear(ctx, buyerID)
}

// MarkRecovered links the buyer's open abandoned record to the order that recovered it.
func (s *Service) MarkRecovered(ctx context.Context, buyerID, orderID string) error {
	recovered, err := s.repo.MarkRecovered(ctx, buyerID, orderID, s.now())
	if err != nil {
		return err
	}
	if recovered {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "abandoned cart recovered",
			slog.String("buyer.id", buyerID), slog.String("order.id", orderID))
	}
	return nil
}

// SweepAbandoned opens an abandoned record for every idle cart and sends a
// reminder. A failure for one buyer never stops the sweep.
func (s *Service) SweepAbandoned(ctx context.Context, cutoff time.Time) (*ports.SweepReport, error) {
	carts, err := s.repo.ListIdle(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	report := &ports.SweepReport{Cutoff: cutoff, Checked: len(carts)}
	for _, cart := range carts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		record := &domain.AbandonedCart{
			ID:        s.newID(),
			BuyerID:   cart.BuyerID,
			Items:     cart.Items,
			Status:    domain.AbandonedOpen,
			CreatedAt: s.now().UTC(),
		}
		created, err := s.repo.CreateAbandoned(ctx, record)
		if err != nil {
			report.Failed++
			s.logger.LogAttrs(ctx, slog.LevelWarn, "abandoned cart record failed",
				slog.String("buyer.id", cart.BuyerID), slog.String("error", err.Error()))
			continue
		}
		if !created {
			continue
		}
		report.Flagged++
		if s.notifier != nil {
			s.notifier.Send(ctx, "", notifydomain.KindCartAbandoned, map[string]any{
				"buyerId":         cart.BuyerID,
				"abandonedCartId": record.ID,
				"lines":           len(cart.Items),
			})
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "abandoned cart sweep finished",
		slog.Int("checked", report.Checked), slog.Int("flagged", report.Flagged), slog.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) ListAbandoned(ctx context.Context, actor identity.Actor, status domain.AbandonedStatus) ([]*domain.AbandonedCart, error) {
	if actor.Anonymous() {
		return nil, failure.Unauthorized("identity required")
	}
	if !actor.IsAdmin() {
		return nil, failure.Forbidden("admin role required")
	}
	switch status {
	case "", domain.AbandonedOpen, domain.AbandonedRecovered:
	default:
		return nil, failure.Validation("unknown abandoned cart status %q", status)
	}
	return s.repo.ListAbandoned(ctx, status)
}

var _ ports.Service = (*Service)(nil)
