package orderserver

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	cartmapper "github.com/Apurer/order-engine/internal/domains/carts/adapters/http/mapper"
	cartdomain "github.com/Apurer/order-engine/internal/domains/carts/domain"
	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordermapper "github.com/Apurer/order-engine/internal/domains/orders/adapters/http/mapper"
	ordertypes "github.com/Apurer/order-engine/internal/domains/orders/application/types"
	orderdomain "github.com/Apurer/order-engine/internal/domains/orders/domain"
	orderports "github.com/Apurer/order-engine/internal/domains/orders/ports"
	trackingmapper "github.com/Apurer/order-engine/internal/domains/tracking/adapters/http/mapper"
	trackingports "github.com/Apurer/order-engine/internal/domains/tracking/ports"
	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
)

// AdminAPI serves operator endpoints. Routes are guarded by RequireAdmin.
type AdminAPI struct {
	orders orderports.Service
	resync trackingports.Resync
	carts  cartports.Service
}

func NewAdminAPI(orders orderports.Service, resync trackingports.Resync, carts cartports.Service) AdminAPI {
	return AdminAPI{orders: orders, resync: resync, carts: carts}
}

// Get /v1/admin/orders
// List all orders newest first
func (api *AdminAPI) ListOrders(c *gin.Context) {
	page, ok := intQuery(c, "page")
	if !ok {
		return
	}
	size, ok := intQuery(c, "pageSize")
	if !ok {
		return
	}
	result, err := api.orders.List(c.Request.Context(), ordertypes.ListOrdersInput{
		Status:   orderdomain.Status(c.Query("status")),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromPage(result))
}

// Patch /v1/admin/orders/:orderId/status
// Move an order along the status automaton
func (api *AdminAPI) UpdateStatus(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var payload ordermapper.UpdateStatusRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := api.orders.UpdateStatus(c.Request.Context(), ordertypes.UpdateStatusInput{
		Actor: ActorFrom(c),
		ID:    id,
		To:    orderdomain.Status(payload.Status),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/admin/orders/:orderId/tracking
// Attach a tracking number and ship a packed order
func (api *AdminAPI) AssignTracking(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	var payload ordermapper.AssignTrackingRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	order, err := api.orders.AssignTracking(c.Request.Context(), ordertypes.AssignTrackingInput{
		Actor:          ActorFrom(c),
		ID:             id,
		TrackingNumber: payload.TrackingNumber,
		Courier:        payload.Courier,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromDomainOrder(order))
}

// Post /v1/admin/orders/:orderId/tracking/resync
// Pull carrier state for one order now
func (api *AdminAPI) ResyncTracking(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	result, err := api.resync.Resync(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackingmapper.FromResult(result))
}

// Get /v1/admin/stats
// Order counts and revenue
func (api *AdminAPI) Stats(c *gin.Context) {
	stats, err := api.orders.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ordermapper.FromStats(stats))
}

// Get /v1/admin/carts/abandoned
// List abandoned-cart records, optionally by status
func (api *AdminAPI) ListAbandonedCarts(c *gin.Context) {
	records, err := api.carts.ListAbandoned(c.Request.Context(), ActorFrom(c), cartdomain.AbandonedStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"carts": cartmapper.FromAbandoned(records)})
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		apierrors.Respond(c, apierrors.NewValidationProblem(map[string]string{name: "must be a non-negative integer"}))
		return 0, false
	}
	return n, true
}
