package domain

import (
	"fmt"
	"net/url"
	"strings"
)

var courierURLTemplates = map[string]string{
	"dhl":       "https://www.dhl.com/track?tracking-id=%s",
	"ups":       "https://www.ups.com/track?tracknum=%s",
	"fedex":     "https://www.fedex.com/fedextrack/?trknbr=%s",
	"usps":      "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	"bluedart":  "https://www.bluedart.com/tracking?awb=%s",
	"delhivery": "https://www.delhivery.com/track/package/%s",
}

// NormalizeCourier lowercases and trims a courier slug.
func NormalizeCourier(courier string) string {
	return strings.ToLower(strings.TrimSpace(courier))
}

// TrackingURL builds the public tracking page for known couriers and a generic one otherwise.
func TrackingURL(courier, number string) string {
	slug := NormalizeCourier(courier)
	escaped := url.QueryEscape(number)
	if tmpl, ok := courierURLTemplates[slug]; ok {
		return fmt.Sprintf(tmpl, escaped)
	}
	return fmt.Sprintf("https://track.aftership.com/%s/%s", url.PathEscape(slug), escaped)
}
