package orderserver

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apierrors "github.com/Apurer/order-engine/internal/shared/errors"
)

// RateLimit admits rps requests per second with the given burst and answers
// the rest with 429. The provider retries rejected deliveries.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		reservation := limiter.Reserve()
		if !reservation.OK() {
			apierrors.Respond(c, apierrors.ErrTooManyRequests)
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			seconds := strconv.Itoa(int(math.Ceil(delay.Seconds())))
			c.Header("Retry-After", seconds)
			apierrors.Respond(c, apierrors.ErrTooManyRequests.WithDetail("retry after "+seconds+"s"))
			return
		}
		c.Next()
	}
}
