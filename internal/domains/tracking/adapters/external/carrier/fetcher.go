package carrier

import (
	"context"
	"errors"
	"fmt"

	carrierclient "github.com/Apurer/order-engine/internal/clients/http/carrier"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	"github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

// Fetcher implements the outbound carrier port over the HTTP client.
type Fetcher struct {
	client *carrierclient.Client
}

func NewFetcher(client *carrierclient.Client) *Fetcher {
	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, trackingNumber, courier string) (*domain.Record, error) {
	if f == nil || f.client == nil {
		return nil, errors.New("carrier fetcher not configured")
	}
	tracking, err := f.client.GetTracking(ctx, courier, trackingNumber)
	if err != nil {
		if errors.Is(err, carrierclient.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ports.ErrUnknownShipment, err)
		}
		return nil, err
	}
	record := ToRecord(tracking)
	if record.Number == "" {
		record.Number = trackingNumber
	}
	if record.Courier == "" {
		record.Courier = courier
	}
	return record, nil
}

var _ ports.Carrier = (*Fetcher)(nil)
