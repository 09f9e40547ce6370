//go:build pact
// +build pact

package consumer_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"

	carrierclient "github.com/Apurer/order-engine/internal/clients/http/carrier"
	trackingcarrier "github.com/Apurer/order-engine/internal/domains/tracking/adapters/external/carrier"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	pacttest "github.com/Apurer/order-engine/test/pact"
)

func TestCarrierTrackingContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.EngineName,
		Provider: pacttest.CarrierName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	checkpointTime := "2026-03-01T09:30:00Z"

	pact.AddInteraction().
		Given(pacttest.StateShipmentInTransit).
		UponReceiving("a request for a tracked shipment").
		WithRequest("GET", fmt.Sprintf("/trackings/%s/%s", pacttest.CarrierSlug, pacttest.KnownShipment), func(b *pactconsumer.V2RequestBuilder) {
			b.Header(carrierclient.APIKeyHeader, matchers.Like(pacttest.CarrierAPIKey))
		}).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"data": matchers.Map{
					"tracking": matchers.Map{
						"tracking_number":   matchers.Like(pacttest.KnownShipment),
						"slug":              matchers.Like(pacttest.CarrierSlug),
						"tag":               matchers.Term("OutForDelivery", "Pending|InfoReceived|InTransit|OutForDelivery|AttemptFail|Delivered|Exception"),
						"expected_delivery": matchers.Like("2026-03-02"),
						"checkpoints": matchers.EachLike(matchers.Map{
							"tag":             matchers.Like("OutForDelivery"),
							"message":         matchers.Like("On vehicle for delivery"),
							"location":        matchers.Like("Springfield"),
							"checkpoint_time": matchers.Like(checkpointTime),
						}, 1),
					},
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateShipmentMissing).
		UponReceiving("a request for an unknown shipment").
		WithRequest("GET", fmt.Sprintf("/trackings/%s/%s", pacttest.CarrierSlug, pacttest.MissingShipment), func(b *pactconsumer.V2RequestBuilder) {
			b.Header(carrierclient.APIKeyHeader, matchers.Like(pacttest.CarrierAPIKey))
		}).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"meta": matchers.Map{
					"code":    matchers.Like(4004),
					"message": matchers.Like("Tracking does not exist."),
					"type":    matchers.Like("NotFound"),
				},
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		host := config.Host
		if host == "" {
			host = "localhost"
		}
		client, err := carrierclient.NewCarrierClient(
			fmt.Sprintf("http://%s:%d", host, config.Port),
			pacttest.CarrierAPIKey,
			&http.Client{Timeout: 5 * time.Second},
		)
		if err != nil {
			return err
		}
		fetcher := trackingcarrier.NewFetcher(client)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		record, err := fetcher.Fetch(ctx, pacttest.KnownShipment, pacttest.CarrierSlug)
		if err != nil {
			return fmt.Errorf("fetch known shipment: %w", err)
		}
		if record.CurrentTag() != "OutForDelivery" || len(record.Checkpoints) != 1 {
			return fmt.Errorf("unexpected record %+v", record)
		}
		if record.ExpectedDelivery == nil {
			return errors.New("expected delivery date to be parsed")
		}

		if _, err := fetcher.Fetch(ctx, pacttest.MissingShipment, pacttest.CarrierSlug); !errors.Is(err, trackingports.ErrUnknownShipment) {
			return fmt.Errorf("expected unknown shipment, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
}
