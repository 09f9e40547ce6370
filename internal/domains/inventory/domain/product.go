package domain

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MinQuantity and MaxQuantity bound a single line's quantity.
	MinQuantity = 1
	MaxQuantity = 99
)

var (
	ErrMissingProductID = errors.New("item product id is required")
	ErrMissingName      = errors.New("item name is required")
	ErrMissingPrice     = errors.New("item price is required")
	ErrNegativePrice    = errors.New("item price must not be negative")
	ErrQuantityRange    = errors.New("item quantity must be between 1 and 99")
	ErrUnknownSize      = errors.New("item size is not offered for this product")
)

// Product is the catalog view the ledger needs: live price and live stock.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
	Sizes []string
}

// OffersSize reports whether the product is sold in the given size variant.
// Products without sizes accept only an empty size.
func (p *Product) OffersSize(size string) bool {
	if len(p.Sizes) == 0 {
		return size == ""
	}
	return slices.Contains(p.Sizes, size)
}

// Line is a cart line as submitted by a buyer.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.NullDecimal
	Size      string
}

// Validate checks the line's shape without consulting live stock.
func (l Line) Validate() error {
	switch {
	case strings.TrimSpace(l.ProductID) == "":
		return ErrMissingProductID
	case strings.TrimSpace(l.Name) == "":
		return ErrMissingName
	case !l.Price.Valid:
		return ErrMissingPrice
	case l.Price.Decimal.IsNegative():
		return ErrNegativePrice
	case l.Quantity < MinQuantity || l.Quantity > MaxQuantity:
		return ErrQuantityRange
	}
	return nil
}

// PricedLine is a validated line carrying the unit price snapshot taken at validation time.
type PricedLine struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
	Size      string
}

// Subtotal returns UnitPrice × Quantity.
func (p PricedLine) Subtotal() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Adjustment is a per-product stock delta. Quantity is always positive; the
// direction is given by the ledger operation applying it.
type Adjustment struct {
	ProductID string
	Quantity  int
}

// Aggregate folds adjustments by product so each product appears once, ordered by id.
func Aggregate(adjustments []Adjustment) []Adjustment {
	totals := map[string]int{}
	for _, adj := range adjustments {
		if adj.Quantity <= 0 {
			continue
		}
		totals[adj.ProductID] += adj.Quantity
	}
	out := make([]Adjustment, 0, len(totals))
	for id, qty := range totals {
		out = append(out, Adjustment{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// AdjustmentsFor converts priced lines into stock adjustments.
func AdjustmentsFor(lines []PricedLine) []Adjustment {
	out := make([]Adjustment, 0, len(lines))
	for _, l := range lines {
		out = append(out, Adjustment{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return Aggregate(out)
}
