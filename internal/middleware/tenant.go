package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/response"
)

// ContextTenantKey is the gin context key storing the per-request tenant
// scope.
const ContextTenantKey = "requestContext"

// Header names carrying the tenant scope on every call.
const (
	HeaderHospitalID = "X-Hospital-ID"
	HeaderUserID     = "X-User-ID"
)

// Tenant requires the hospital scope header on every request and stores the
// resulting RequestContext for handlers. The user id falls back to the JWT
// subject when the header is absent.
func Tenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		hospitalID := c.GetHeader(HeaderHospitalID)
		if hospitalID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "missing X-Hospital-ID header"))
			c.Abort()
			return
		}

		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			if claimsValue, exists := c.Get(ContextUserKey); exists {
				if claims, ok := claimsValue.(*models.JWTClaims); ok {
					userID = claims.UserID
				}
			}
		}

		c.Set(ContextTenantKey, models.RequestContext{
			HospitalID: hospitalID,
			UserID:     userID,
		})
		c.Next()
	}
}
