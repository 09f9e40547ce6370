package ports

import (
	"context"
	"time"

	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
)

// Service exposes order lifecycle use cases to adapters.
type Service interface {
	PlaceCOD(ctx context.Context, input ordertypes.PlaceOrderInput) (*domain.Order, error)
	PlaceOnline(ctx context.Context, input ordertypes.PlaceOrderInput) (*ordertypes.OnlineCheckout, error)
	Get(ctx context.Context, ref ordertypes.OrderRef) (*domain.Order, error)
	ListForBuyer(ctx context.Context, ref ordertypes.OrderRef) ([]*domain.Order, error)
	Cancel(ctx context.Context, ref ordertypes.OrderRef) (*domain.Order, error)
	Invoice(ctx context.Context, ref ordertypes.OrderRef) ([]byte, error)

	List(ctx context.Context, input ordertypes.ListOrdersInput) (*ordertypes.OrderPage, error)
	UpdateStatus(ctx context.Context, input ordertypes.UpdateStatusInput) (*domain.Order, error)
	AssignTracking(ctx context.Context, input ordertypes.AssignTrackingInput) (*domain.Order, error)
	Stats(ctx context.Context) (Stats, error)

	SweepUnpaid(ctx context.Context, cutoff time.Time) (*ordertypes.SweepReport, error)
}
