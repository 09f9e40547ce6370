package orderserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	cartmapper "github.com/Apurer/order-engine/internal/domains/carts/adapters/http/mapper"
	cartports "github.com/Apurer/order-engine/internal/domains/carts/ports"
	ordermapper "github.com/Apurer/order-engine/internal/domains/orders/adapters/http/mapper"
)

type CartAPI struct {
	carts cartports.Service
}

func NewCartAPI(carts cartports.Service) CartAPI {
	return CartAPI{carts: carts}
}

// Get /v1/cart
// Return the caller's saved cart
func (api *CartAPI) GetCart(c *gin.Context) {
	actor := ActorFrom(c)
	cart, err := api.carts.Get(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartmapper.FromCart(actor.ID, cart))
}

// Put /v1/cart
// Replace the caller's saved cart
func (api *CartAPI) PutCart(c *gin.Context) {
	var payload cartmapper.PutCartRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondBadRequest(c, err)
		return
	}
	actor := ActorFrom(c)
	cart, err := api.carts.Put(c.Request.Context(), actor, ordermapper.ToLines(payload.Items))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartmapper.FromCart(actor.ID, cart))
}

// Delete /v1/cart
func (api *CartAPI) ClearCart(c *gin.Context) {
	if err := api.carts.Clear(c.Request.Context(), ActorFrom(c).ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
