package application

import (
	"context"
	"log/slog"
	"time"

	notifydomain "github.com/Apurer/order-engine/internal/domains/notifications/domain"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
	"github.com/Apurer/order-engine/internal/domains/orders/ports"
)

// SweepUnpaid cancels then deletes online orders that stayed unpaid past
// cutoff. COD orders are never listed. Failures are per order.
func (s *Service) SweepUnpaid(ctx context.Context, cutoff time.Time) (*ordertypes.SweepReport, error) {
	orders, err := s.repo.ListUnpaidOnline(ctx, cutoff)
	if err != nil {
		return nil, mapError(err)
	}
	report := &ordertypes.SweepReport{Cutoff: cutoff, Checked: len(orders)}
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		applied, err := s.repo.Transition(ctx, ports.TransitionRequest{
			ID: order.ID, From: domain.StatusPlaced, To: domain.StatusCancelled, RequireUnpaid: true,
		})
		if err != nil {
			report.Failed++
			s.warn(ctx, "unpaid sweep cancel failed", err, slog.String("order.id", order.ID))
			continue
		}
		if !applied {
			// Paid or cancelled since it was listed.
			continue
		}
		report.Cancelled++
		order.Status = domain.StatusCancelled
		s.send(ctx, order, notifydomain.KindOrderCancelled)

		deleted, err := s.repo.DeleteUnpaid(ctx, order.ID)
		if err != nil {
			report.Failed++
			s.warn(ctx, "unpaid sweep delete failed", err, slog.String("order.id", order.ID))
			continue
		}
		if deleted {
			report.Deleted++
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "unpaid order sweep finished",
		slog.Int("checked", report.Checked), slog.Int("cancelled", report.Cancelled),
		slog.Int("deleted", report.Deleted), slog.Int("failed", report.Failed))
	return report, nil
}
