package carrier

import (
	"strings"
	"time"

	carrierclient "github.com/Apurer/order-engine/internal/clients/http/carrier"
	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
)

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ToRecord converts the provider payload, skipping checkpoints without a usable time.
func ToRecord(t *carrierclient.Tracking) *domain.Record {
	if t == nil {
		return &domain.Record{}
	}
	record := &domain.Record{
		Number:           deref(t.TrackingNumber),
		Courier:          deref(t.Slug),
		Tag:              deref(t.Tag),
		ExpectedDelivery: parseTime(deref(t.ExpectedDelivery)),
	}
	for _, cp := range t.Checkpoints {
		at := parseTime(deref(cp.CheckpointTime))
		if at == nil {
			continue
		}
		record.Checkpoints = append(record.Checkpoints, domain.Checkpoint{
			Tag:      deref(cp.Tag),
			Message:  deref(cp.Message),
			Location: deref(cp.Location),
			At:       at.UTC(),
		})
	}
	return record
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
