package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/response"
)

// HeaderIdempotencyKey names the header capacity-changing requests must carry.
const HeaderIdempotencyKey = "Idempotency-Key"

// RequireIdempotencyKey rejects mutating requests that arrive without an
// idempotency key, before any state is touched.
func RequireIdempotencyKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(HeaderIdempotencyKey) == "" {
			response.Error(c, appErrors.ErrIdempotencyKey)
			c.Abort()
			return
		}
		c.Next()
	}
}
