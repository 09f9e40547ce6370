package mapper

import "github.com/Apurer/order-engine/internal/domains/payments/domain"

// Result acknowledges a webhook delivery or a verification request.
type Result struct {
	EventID  string `json:"eventId,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
	Outcome  string `json:"outcome"`
	Received bool   `json:"received"`
}

func FromResult(result *domain.Result) Result {
	if result == nil {
		return Result{Received: true, Outcome: string(domain.OutcomeIgnored)}
	}
	return Result{EventID: result.EventID, OrderID: result.OrderID, Outcome: string(result.Outcome), Received: true}
}
