package orderserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	ordermapper "github.com/Apurer/order-engine/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	trackingmapper "github.com/Apurer/order-engine/internal/domains/tracking/adapters/http/mapper"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
)

// OrderAPI serves buyer-facing order endpoints.
type OrderAPI struct {
	orders   orderports.Service
	tracking trackingports.Synchronizer
}

func NewOrderAPI(orders orderports.Service, tracking trackingports.Synchronizer) OrderAPI {
	return OrderAPI{orders: orders, tracking: tracking}
}

// Post /v1/orders/cod
// Place a cash-on-delivery order
func (api *OrderAPI) PlaceCODOrder(c *gin.Context) {
	input, ok := bindPlacement(c)
	if !ok {
		return
	}
	order, err := api.orders.PlaceCOD(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/online
// Place an order paid through the hosted checkout
func (api *OrderAPI) PlaceOnlineOrder(c *gin.Context) {
	input, ok := bindPlacement(c)
	if !ok {
		return
	}
	checkout, err := api.orders.PlaceOnline(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ordermapper.FromCheckout(checkout))
}

func bindPlacement(c *gin.Context) (ordertypes.PlaceOrderInput, bool) {
	var payload ordermapper.PlaceOrderRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return ordertypes.PlaceOrderInput{}, false
	}
	return ordertypes.PlaceOrderInput{
		Actor:   ActorFrom(c),
		Items:   ordermapper.ToLines(payload.Items),
		Address: payload.Address,
	}, true
}

// Get /v1/orders
// List the caller's orders
func (api *OrderAPI) ListOrders(c *gin.Context) {
	orders, err := api.orders.ListForBuyer(c.Request.Context(), ordertypes.OrderRef{Actor: ActorFrom(c)})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": ordermapper.FromDomainOrders(orders)})
}

// Get /v1/orders/:orderId
// Find an order by id
func (api *OrderAPI) GetOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := api.orders.Get(c.Request.Context(), ordertypes.OrderRef{Actor: ActorFrom(c), ID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/orders/:orderId/cancel
// Cancel an order that has not shipped
func (api *OrderAPI) CancelOrder(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	order, err := api.orders.Cancel(c.Request.Context(), ordertypes.OrderRef{Actor: ActorFrom(c), ID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Get /v1/orders/:orderId/invoice
// Download a plain-text invoice
func (api *OrderAPI) GetInvoice(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	body, err := api.orders.Invoice(c.Request.Context(), ordertypes.OrderRef{Actor: ActorFrom(c), ID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.txt"`, id))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

// Get /v1/orders/:orderId/tracking
// Fetch live carrier tracking for an order
func (api *OrderAPI) GetTracking(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	record, err := api.tracking.Live(c.Request.Context(), ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackingmapper.FromRecord(record))
}
