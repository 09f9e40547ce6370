package mapper

import (
	"time"

	"github.com/Apurer/order-engine/internal/domains/tracking/domain"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

type Checkpoint struct {
	Tag      string    `json:"tag"`
	Message  string    `json:"message,omitempty"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

// Tracking is the live carrier view returned to buyers.
type Tracking struct {
	TrackingNumber   string       `json:"trackingNumber"`
	Courier          string       `json:"courier"`
	Tag              string       `json:"tag"`
	ExpectedDelivery *time.Time   `json:"expectedDelivery,omitempty"`
	Checkpoints      []Checkpoint `json:"checkpoints"`
}

type ResyncResult struct {
	OrderID  string `json:"orderId"`
	From     string `json:"from"`
	To       string `json:"to"`
	Tag      string `json:"tag,omitempty"`
	Changed  bool   `json:"changed"`
	Recorded bool   `json:"recorded"`
}

func FromRecord(record *domain.Record) Tracking {
	if record == nil {
		return Tracking{Checkpoints: []Checkpoint{}}
	}
	out := Tracking{
		TrackingNumber:   record.Number,
		Courier:          record.Courier,
		Tag:              record.CurrentTag(),
		ExpectedDelivery: record.ExpectedDelivery,
		Checkpoints:      make([]Checkpoint, 0, len(record.Checkpoints)),
	}
	for _, cp := range record.Checkpoints {
		out.Checkpoints = append(out.Checkpoints, Checkpoint{Tag: cp.Tag, Message: cp.Message, Location: cp.Location, At: cp.At})
	}
	return out
}

func FromResult(result *trackingports.OrderResult) ResyncResult {
	if result == nil {
		return ResyncResult{}
	}
	return ResyncResult{
		OrderID:  result.OrderID,
		From:     string(result.From),
		To:       string(result.To),
		Tag:      result.Tag,
		Changed:  result.Changed(),
		Recorded: result.Recorded,
	}
}
