package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/middleware"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

func requestContextFrom(c *gin.Context) models.RequestContext {
	value, exists := c.Get(middleware.ContextTenantKey)
	if !exists {
		return models.RequestContext{}
	}
	rc, ok := value.(models.RequestContext)
	if !ok {
		return models.RequestContext{}
	}
	return rc
}
