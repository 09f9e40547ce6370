package application

import (
	"bytes"
	"context"
	"fmt"
	"text/tabwriter"

	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	"github.com/Apurer/order-engine/internal/domains/orders/domain"
)

// Invoice renders a plain-text invoice from the order's price snapshot.
func (s *Service) Invoice(ctx context.Context, ref ordertypes.OrderRef) ([]byte, error) {
	order, err := s.loadFor(ctx, ref.Actor, ref.ID)
	if err != nil {
		return nil, err
	}
	return RenderInvoice(order), nil
}

// RenderInvoice formats an order as a fixed-width text invoice.
func RenderInvoice(order *domain.Order) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "INVOICE %s\n", order.ID)
	fmt.Fprintf(&buf, "Date: %s\n", order.CreatedAt.Format("2006-01-02"))
	fmt.Fprintf(&buf, "Bill to: %s\n", order.Address.FullName)
	fmt.Fprintf(&buf, "         %s\n", order.Address.Line1)
	if order.Address.Line2 != "" {
		fmt.Fprintf(&buf, "         %s\n", order.Address.Line2)
	}
	fmt.Fprintf(&buf, "         %s %s, %s\n\n", order.Address.PostalCode, order.Address.City, order.Address.Country)

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Item\tSize\tQty\tUnit\tTotal\t")
	for _, item := range order.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t\n", item.Name, item.Size, item.Quantity, item.UnitPrice.StringFixed(2), item.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(w, "Delivery\t\t\t\t%s\t\n", order.DeliveryFee.StringFixed(2))
	fmt.Fprintf(w, "Amount\t\t\t\t%s\t\n", order.Amount.StringFixed(2))
	_ = w.Flush()

	paid := "unpaid"
	if order.Paid {
		paid = "paid"
	}
	fmt.Fprintf(&buf, "\nPayment: %s (%s)\nStatus: %s\n", order.PaymentMethod, paid, order.Status)
	return buf.Bytes()
}
