package ports

import (
	"context"
	"errors"
	"time"

	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/shared/identity"
)

// ErrUnknownShipment is returned by carriers that do not know a tracking number.
// It is never retried.
var ErrUnknownShipment = errors.New("carrier does not know this shipment")

// Carrier fetches tracking records from the external tracking provider.
type Carrier interface {
	Fetch(ctx context.Context, trackingNumber, courier string) (*domain.Record, error)
}

// Orders is the slice of order persistence the synchronizer needs.
type Orders interface {
	GetByID(ctx context.Context, id string) (*orderdomain.Order, error)
	ListTrackable(ctx context.Context) ([]*orderdomain.Order, error)
	ApplyCheckpoint(ctx context.Context, update orderports.CheckpointUpdate) (bool, error)
	SetEstimatedDelivery(ctx context.Context, id string, eta time.Time) (bool, error)
}

// OrderResult is the outcome of syncing one order.
type OrderResult struct {
	OrderID    string
	From       orderdomain.Status
	To         orderdomain.Status
	Tag        string
	Recorded   bool
	// ETAUpdated is set when only the estimated delivery date changed.
	ETAUpdated bool
}

// Changed reports whether the order's status moved.
func (r OrderResult) Changed() bool { return r.From != r.To }

// Report summarises one batch run.
type Report struct {
	Checked  int
	Updated  int
	Recorded int
	Failed   int
}

// Synchronizer is the tracking use-case surface.
type Synchronizer interface {
	SyncAll(ctx context.Context) (*Report, error)
	SyncOrder(ctx context.Context, orderID string) (*OrderResult, error)
	Live(ctx context.Context, actor identity.Actor, orderID string) (*domain.Record, error)
}

// Resync triggers an out-of-band sync for one order, durably when possible.
type Resync interface {
	Resync(ctx context.Context, orderID string) (*OrderResult, error)
}
