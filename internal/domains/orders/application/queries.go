package application

import (
	"context"

	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (s *Service) Get(ctx context.Context, ref ordertypes.OrderRef) (*domain.Order, error) {
	return s.loadFor(ctx, ref.Actor, ref.ID)
}

// ListForBuyer returns the caller's own orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, ref ordertypes.OrderRef) ([]*domain.Order, error) {
	if ref.Actor.Anonymous() {
		return nil, failure.Unauthorized("identity required")
	}
	orders, err := s.repo.ListByBuyer(ctx, ref.Actor.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return orders, nil
}

// List is the admin listing.
func (s *Service) List(ctx context.Context, input ordertypes.ListOrdersInput) (*ordertypes.OrderPage, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, failure.Validation("unknown status %q", input.Status)
	}
	page, size := input.Page, input.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	orders, total, err := s.repo.List(ctx, ports.ListFilter{Status: input.Status, Page: page, PageSize: size})
	if err != nil {
		return nil, mapError(err)
	}
	return &ordertypes.OrderPage{Orders: orders, Total: total, Page: page, PageSize: size}, nil
}

func (s *Service) Stats(ctx context.Context) (ports.Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return ports.Stats{}, mapError(err)
	}
	if stats.ByStatus == nil {
		stats.ByStatus = map[domain.Status]int64{}
	}
	for _, status := range domain.Statuses {
		if _, ok := stats.ByStatus[status]; !ok {
			stats.ByStatus[status] = 0
		}
	}
	return stats, nil
}
