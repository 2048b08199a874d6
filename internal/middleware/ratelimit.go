package middleware

import (
	"fmt"
	"math"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/tahsinku/tahsinku-api/pkg/errors"
	"github.com/tahsinku/tahsinku-api/pkg/ratelimit"
	"github.com/tahsinku/tahsinku-api/pkg/response"
)

// RateLimit rejects requests once a client exceeds max requests per window.
// Clients are keyed by forwarded IP and user agent, scoped per export domain
// so exhausting one domain's budget leaves the others open. Rejected requests
// carry a Retry-After header reporting when the window reopens.
func RateLimit(limiter *ratelimit.Limiter, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || max <= 0 {
			c.Next()
			return
		}

		key := "export:" + c.Param("domain") + ":" + ratelimit.ClientKey(c)
		res := limiter.Check(key, max, window)
		if !res.OK {
			retryAfter := math.Ceil(time.Until(res.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%.0f", retryAfter))
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited, "too many export requests, please retry later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
