package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/middleware"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

// Routes bundles the handlers mounted under the API prefix.
type Routes struct {
	Schedules      *ScheduleHandler
	Slots          *SlotHandler
	Commands       *CommandHandler
	ExportsEnabled bool
}

// Mount registers the API routes on the group. Non-command mutations demand
// the Idempotency-Key header before any state is touched; command routes carry
// their idempotency pair in the body, validated by the command envelope.
func (rt Routes) Mount(api *gin.RouterGroup) {
	staff := middleware.RequireRoles(models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin)
	requireKey := middleware.RequireIdempotencyKey()

	schedules := api.Group("/doctor-schedules")
	{
		schedules.GET("", rt.Schedules.List)
		schedules.POST("", staff, requireKey, rt.Schedules.Create)
		schedules.DELETE("/:id", staff, rt.Schedules.Deactivate)
		schedules.GET("/overrides", rt.Schedules.ListOverrides)
		schedules.POST("/overrides", staff, requireKey, rt.Schedules.CreateOverride)
		schedules.GET("/forced-blocks", rt.Schedules.ListForcedBlocks)
		schedules.POST("/forced-blocks", staff, requireKey, rt.Schedules.CreateForcedBlock)
		schedules.POST("/regenerate", staff, rt.Schedules.Regenerate)
		if rt.ExportsEnabled {
			schedules.GET("/export", staff, rt.Schedules.Export)
		}
	}

	slots := api.Group("/appointment-slots")
	{
		slots.GET("/availability", rt.Slots.Availability)
		slots.GET("/admin/search", staff, rt.Slots.AdminSearch)
		slots.GET("/:id", rt.Slots.Get)
		slots.POST("/:id/hold", requireKey, rt.Slots.CreateHold)
		slots.DELETE("/:id/hold", requireKey, rt.Slots.ReleaseHold)
		slots.GET("/:id/holds", staff, rt.Slots.ListHolds)
		slots.POST("/:id/block", staff, requireKey, rt.Slots.Block)
	}

	commands := api.Group("/commands")
	{
		commands.POST("/schedule-appointment", rt.Commands.ScheduleAppointment)
		commands.POST("/cancel-appointment", rt.Commands.CancelAppointment)
	}

	api.GET("/holds/:id", staff, rt.Slots.GetHold)
	api.GET("/appointments/:id", rt.Commands.GetAppointment)
}
