package orderserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentmapper "github.com/Apurer/order-engine/internal/domains/payments/adapters/http/mapper"
	paymentports "github.com/Apurer/order-engine/internal/domains/payments/ports"
	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
	"github.com/Apurer/order-engine/internal/shared/failure"
)

const (
	// SignatureHeader carries "t=<unix>,v1=<hex>" for webhook deliveries.
	SignatureHeader = "Payment-Signature"
	maxWebhookBody  = 1 << 20
)

type PaymentAPI struct {
	gateway paymentports.Gateway
}

func NewPaymentAPI(gateway paymentports.Gateway) PaymentAPI {
	return PaymentAPI{gateway: gateway}
}

// Post /v1/payments/webhook
// Receive a signed payment provider callback
func (api *PaymentAPI) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.Respond(c, apierrors.ErrValidation.WithDetail("payload too large"))
			return
		}
		respondBadRequest(c, err)
		return
	}
	result, err := api.gateway.HandleWebhook(c.Request.Context(), c.GetHeader(SignatureHeader), body)
	if err != nil && !(errors.Is(err, failure.ErrReconciliation) && result != nil) {
		respondError(c, err)
		return
	}
	// The event is durably recorded even when an operator must reconcile the
	// order; acknowledging stops provider retries.
	c.JSON(http.StatusOK, paymentmapper.FromResult(result))
}

// Post /v1/orders/:orderId/payment/verify
// Confirm payment by polling the checkout session
func (api *PaymentAPI) VerifyPayment(c *gin.Context) {
	id, ok := orderIDParam(c)
	if !ok {
		return
	}
	result, err := api.gateway.VerifyPayment(c.Request.Context(), ActorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentmapper.FromResult(result))
}
