package logging

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/Apurer/order-engine/internal/domains/payments/ports"
)

// PointsPerUnit converts order amount to loyalty points.
var PointsPerUnit = decimal.NewFromInt(1)

// Loyalty logs awards until a loyalty programme backend exists.
type Loyalty struct {
	logger *slog.Logger
}

func NewLoyalty(logger *slog.Logger) *Loyalty {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loyalty{logger: logger}
}

func (l *Loyalty) Award(ctx context.Context, buyerID, orderID string, amount decimal.Decimal) error {
	points := amount.Mul(PointsPerUnit).Floor().IntPart()
	l.logger.LogAttrs(ctx, slog.LevelInfo, "loyalty points awarded",
		slog.String("buyer.id", buyerID),
		slog.String("order.id", orderID),
		slog.Int64("points", points))
	return nil
}

var _ ports.Loyalty = (*Loyalty)(nil)
