package mapper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
)

// CartItem is the transport shape of a submitted cart line.
type CartItem struct {
	ProductID string              `json:"productId"`
	Name      string              `json:"name"`
	Quantity  int                 `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
	Size      string              `json:"size,omitempty"`
}

// PlaceOrderRequest is the body of both placement endpoints.
type PlaceOrderRequest struct {
	Items   []CartItem          `json:"items"`
	Address orderdomain.Address `json:"address"`
}

type Checkpoint struct {
	Tag      string    `json:"tag"`
	Message  string    `json:"message,omitempty"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

type Tracking struct {
	Number            string      `json:"trackingNumber,omitempty"`
	Courier           string      `json:"courier,omitempty"`
	URL               string      `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time  `json:"estimatedDelivery,omitempty"`
	LastCheckpoint    *Checkpoint `json:"lastCheckpoint,omitempty"`
}

type LineItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Size      string `json:"size,omitempty"`
}

// Order is the transport representation of an order.
type Order struct {
	ID                     string              `json:"id"`
	BuyerID                string              `json:"buyerId"`
	Items                  []LineItem          `json:"items"`
	Address                orderdomain.Address `json:"address"`
	DeliveryFee            string              `json:"deliveryFee"`
	Amount                 string              `json:"amount"`
	PaymentMethod          string              `json:"paymentMethod"`
	Paid                   bool                `json:"paid"`
	Status                 string              `json:"status"`
	Tracking               Tracking            `json:"tracking"`
	ExternalSessionID      string              `json:"externalSessionId,omitempty"`
	ReconciliationRequired bool                `json:"reconciliationRequired"`
	ReconciliationReason   string              `json:"reconciliationReason,omitempty"`
	CreatedAt              time.Time           `json:"createdAt"`
}

type OnlineCheckout struct {
	Order       Order  `json:"order"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type OrderPage struct {
	Orders   []Order `json:"orders"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

type Stats struct {
	Total              int64            `json:"total"`
	ByStatus           map[string]int64 `json:"byStatus"`
	PaidRevenue        string           `json:"paidRevenue"`
	AwaitingPayment    int64            `json:"awaitingPayment"`
	NeedReconciliation int64            `json:"needReconciliation"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AssignTrackingRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required"`
	Courier        string `json:"courier" binding:"required"`
}

// ToLines converts transport cart items into ledger lines.
func ToLines(items []CartItem) []inventorydomain.Line {
	out := make([]inventorydomain.Line, 0, len(items))
	for _, item := range items {
		out = append(out, inventorydomain.Line{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Size:      item.Size,
		})
	}
	return out
}

// FromLines converts ledger lines back to transport cart items.
func FromLines(lines []inventorydomain.Line) []CartItem {
	out := make([]CartItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartItem{ProductID: l.ProductID, Name: l.Name, Quantity: l.Quantity, Price: l.Price, Size: l.Size})
	}
	return out
}

// FromDomainOrder converts a domain order to the transport representation.
func FromDomainOrder(order *orderdomain.Order) Order {
	if order == nil {
		return Order{}
	}
	items := make([]LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Size:      item.Size,
		})
	}
	out := Order{
		ID:            order.ID,
		BuyerID:       order.BuyerID,
		Items:         items,
		Address:       order.Address,
		DeliveryFee:   order.DeliveryFee.StringFixed(2),
		Amount:        order.Amount.StringFixed(2),
		PaymentMethod: string(order.PaymentMethod),
		Paid:          order.Paid,
		Status:        string(order.Status),
		Tracking: Tracking{
			Number:            order.Tracking.Number,
			Courier:           order.Tracking.Courier,
			URL:               order.Tracking.URL,
			EstimatedDelivery: order.Tracking.EstimatedDelivery,
		},
		ExternalSessionID: order.ExternalSessionID,
		CreatedAt:         order.CreatedAt,
	}
	if cp := order.Tracking.LastCheckpoint; cp != nil {
		out.Tracking.LastCheckpoint = &Checkpoint{Tag: cp.Tag, Message: cp.Message, Location: cp.Location, At: cp.At}
	}
	if order.Reconciliation != nil {
		out.ReconciliationRequired = true
		out.ReconciliationReason = order.Reconciliation.Reason
	}
	return out
}

func FromDomainOrders(orders []*orderdomain.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, FromDomainOrder(o))
	}
	return out
}

func FromCheckout(checkout *ordertypes.OnlineCheckout) OnlineCheckout {
	return OnlineCheckout{Order: FromDomainOrder(checkout.Order), SessionID: checkout.SessionID, RedirectURL: checkout.RedirectURL}
}

func FromPage(page *ordertypes.OrderPage) OrderPage {
	return OrderPage{Orders: FromDomainOrders(page.Orders), Total: page.Total, Page: page.Page, PageSize: page.PageSize}
}

func FromStats(stats orderports.Stats) Stats {
	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, n := range stats.ByStatus {
		byStatus[string(status)] = n
	}
	return Stats{
		Total:              stats.Total,
		ByStatus:           byStatus,
		PaidRevenue:        stats.PaidRevenue.StringFixed(2),
		AwaitingPayment:    stats.AwaitingPayment,
		NeedReconciliation: stats.NeedReconciliation,
	}
}
