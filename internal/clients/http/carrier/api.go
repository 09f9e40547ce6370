package carrier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// APIKeyHeader authenticates requests to the tracking provider.
const APIKeyHeader = "as-api-key"

// Checkpoint is one scan in the provider's payload. Every field is optional.
type Checkpoint struct {
	Tag            *string `json:"tag,omitempty"`
	Message        *string `json:"message,omitempty"`
	Location       *string `json:"location,omitempty"`
	CheckpointTime *string `json:"checkpoint_time,omitempty"`
}

// Tracking is the provider's tracking resource.
type Tracking struct {
	TrackingNumber   *string      `json:"tracking_number,omitempty"`
	Slug             *string      `json:"slug,omitempty"`
	Tag              *string      `json:"tag,omitempty"`
	ExpectedDelivery *string      `json:"expected_delivery,omitempty"`
	Checkpoints      []Checkpoint `json:"checkpoints,omitempty"`
}

// TrackingEnvelope wraps every successful response.
type TrackingEnvelope struct {
	Data struct {
		Tracking *Tracking `json:"tracking,omitempty"`
	} `json:"data"`
}

// Error is the provider's error body.
type Error struct {
	Meta struct {
		Code    *int    `json:"code,omitempty"`
		Message *string `json:"message,omitempty"`
		Type    *string `json:"type,omitempty"`
	} `json:"meta"`
}

// NewGetTrackingRequest builds GET /trackings/{slug}/{tracking_number}.
func NewGetTrackingRequest(ctx context.Context, server, slug, trackingNumber string) (*http.Request, error) {
	pathSlug, err := runtime.StyleParamWithLocation("simple", false, "slug", runtime.ParamLocationPath, slug)
	if err != nil {
		return nil, err
	}
	pathNumber, err := runtime.StyleParamWithLocation("simple", false, "tracking_number", runtime.ParamLocationPath, trackingNumber)
	if err != nil {
		return nil, err
	}
	serverURL, err := url.Parse(strings.TrimSuffix(server, "/") + "/")
	if err != nil {
		return nil, err
	}
	queryURL, err := serverURL.Parse(fmt.Sprintf("trackings/%s/%s", pathSlug, pathNumber))
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
