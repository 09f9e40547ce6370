package orderserver

import (
	"github.com/gin-gonic/gin"

	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
)

// respondError classifies err and writes the matching problem.
func respondError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	apierrors.RespondError(c, err)
}

// respondBadRequest reports a malformed request body or parameter.
func respondBadRequest(c *gin.Context, err error) {
	apierrors.Respond(c, apierrors.ErrValidation.WithDetail(err.Error()))
}

func orderIDParam(c *gin.Context) (string, bool) {
	id := c.Param("orderId")
	if id == "" {
		apierrors.Respond(c, apierrors.NewValidationProblem(map[string]string{"orderId": "required"}))
		return "", false
	}
	return id, true
}
