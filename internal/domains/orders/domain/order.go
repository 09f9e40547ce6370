package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	inventorydomain "github.com/Apurer/order-engine/internal/domains/inventory/domain"
)

// Status enumerates order progression.
type Status string

const (
	StatusPlaced         Status = "Placed"
	StatusPacking        Status = "Packing"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "OutForDelivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPlaced, StatusPacking, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are defined from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// PaymentMethod distinguishes cash-on-delivery from online checkout.
type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

var (
	ErrMissingBuyer        = errors.New("order buyer is required")
	ErrNoItems             = errors.New("order must contain at least one item")
	ErrInvalidItem         = errors.New("order item is invalid")
	ErrInvalidAddress      = errors.New("shipping address is incomplete")
	ErrInvalidPayment      = errors.New("payment method is invalid")
	ErrInvalidStatus       = errors.New("order status is invalid")
	ErrAmountMismatch      = errors.New("order amount does not match its items and delivery fee")
	ErrNegativeDeliveryFee = errors.New("delivery fee must not be negative")
)

// Address is the shipping address snapshot taken at placement.
type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Validate() error {
	for _, v := range []string{a.FullName, a.Line1, a.City, a.PostalCode, a.Country} {
		if strings.TrimSpace(v) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

// LineItem is an order line with its unit price frozen at placement.
type LineItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      string          `json:"size,omitempty"`
}

func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Checkpoint is the latest carrier scan applied to the order.
type Checkpoint struct {
	Tag      string    `json:"tag"`
	Message  string    `json:"message,omitempty"`
	Location string    `json:"location,omitempty"`
	At       time.Time `json:"at"`
}

// Tracking holds carrier fields. Number is empty until a tracking number is assigned.
type Tracking struct {
	Number            string
	Courier           string
	URL               string
	EstimatedDelivery *time.Time
	LastCheckpoint    *Checkpoint
}

// Reconciliation is set when a confirmed payment could not be fulfilled automatically.
type Reconciliation struct {
	Reason    string
	FlaggedAt time.Time
}

// Order models the order aggregate.
type Order struct {
	ID                string
	BuyerID           string
	Items             []LineItem
	Address           Address
	DeliveryFee       decimal.Decimal
	Amount            decimal.Decimal
	PaymentMethod     PaymentMethod
	Paid              bool
	Status            Status
	Tracking          Tracking
	ExternalSessionID string
	Reconciliation    *Reconciliation
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewOrder builds a Placed, unpaid order from priced lines and computes its amount.
func NewOrder(id, buyerID string, lines []inventorydomain.PricedLine, address Address, method PaymentMethod, deliveryFee decimal.Decimal, now time.Time) (*Order, error) {
	items := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, LineItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Size:      l.Size,
		})
	}
	order := &Order{
		ID:            id,
		BuyerID:       buyerID,
		Items:         items,
		Address:       address,
		DeliveryFee:   deliveryFee,
		Amount:        ComputeAmount(items, deliveryFee),
		PaymentMethod: method,
		Status:        StatusPlaced,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// ComputeAmount returns Σ(unit price × quantity) + delivery fee.
func ComputeAmount(items []LineItem, deliveryFee decimal.Decimal) decimal.Decimal {
	total := deliveryFee
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Validate enforces invariants on the aggregate.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.BuyerID) == "" {
		return ErrMissingBuyer
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range o.Items {
		if item.ProductID == "" || item.Quantity < inventorydomain.MinQuantity || item.Quantity > inventorydomain.MaxQuantity || item.UnitPrice.IsNegative() {
			return ErrInvalidItem
		}
	}
	if err := o.Address.Validate(); err != nil {
		return err
	}
	if !o.PaymentMethod.Valid() {
		return ErrInvalidPayment
	}
	if !o.Status.Valid() {
		return ErrInvalidStatus
	}
	if o.DeliveryFee.IsNegative() {
		return ErrNegativeDeliveryFee
	}
	if !o.Amount.Equal(ComputeAmount(o.Items, o.DeliveryFee)) {
		return ErrAmountMismatch
	}
	return nil
}

// Adjustments returns the stock effect of the order's items.
func (o *Order) Adjustments() []inventorydomain.Adjustment {
	out := make([]inventorydomain.Adjustment, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, inventorydomain.Adjustment{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return inventorydomain.Aggregate(out)
}

// Lines re-expresses the items as priced ledger lines.
func (o *Order) Lines() []inventorydomain.Line {
	out := make([]inventorydomain.Line, 0, len(o.Items))
	for _, item := range o.Items {
		out = append(out, inventorydomain.Line{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     decimal.NewNullDecimal(item.UnitPrice),
			Size:      item.Size,
		})
	}
	return out
}

// NeedsReconciliation reports whether an operator must resolve the order.
func (o *Order) NeedsReconciliation() bool {
	return o.Reconciliation != nil
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]LineItem(nil), o.Items...)
	if o.Tracking.EstimatedDelivery != nil {
		eta := *o.Tracking.EstimatedDelivery
		c.Tracking.EstimatedDelivery = &eta
	}
	if o.Tracking.LastCheckpoint != nil {
		cp := *o.Tracking.LastCheckpoint
		c.Tracking.LastCheckpoint = &cp
	}
	if o.Reconciliation != nil {
		r := *o.Reconciliation
		c.Reconciliation = &r
	}
	return &c
}
