package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/service"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/response"
)

// ScheduleHandler manages schedule definition endpoints.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	exports   *service.ExportService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedules *service.ScheduleService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// Create godoc
// @Summary Create base schedule
// @Tags Doctor Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateBaseScheduleRequest true "Base schedule payload"
// @Success 201 {object} response.Envelope
// @Router /doctor-schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.CreateBaseScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	schedule, err := h.schedules.CreateBaseSchedule(c.Request.Context(), req, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// List godoc
// @Summary List base schedules
// @Tags Doctor Schedules
// @Produce json
// @Param doctor_profile_id query string false "Filter by doctor"
// @Param location_id query string false "Filter by location"
// @Success 200 {object} response.Envelope
// @Router /doctor-schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.ListBaseSchedules(c.Request.Context(),
		c.Query("doctor_profile_id"), c.Query("location_id"), requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Deactivate godoc
// @Summary Deactivate base schedule
// @Tags Doctor Schedules
// @Produce json
// @Param id path string true "Base schedule ID"
// @Success 204
// @Router /doctor-schedules/{id} [delete]
func (h *ScheduleHandler) Deactivate(c *gin.Context) {
	if err := h.schedules.DeactivateBaseSchedule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateOverride godoc
// @Summary Create schedule override
// @Tags Doctor Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /doctor-schedules/overrides [post]
func (h *ScheduleHandler) CreateOverride(c *gin.Context) {
	var req dto.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	override, err := h.schedules.AddOverride(c.Request.Context(), req, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, override)
}

// ListOverrides godoc
// @Summary List schedule overrides
// @Tags Doctor Schedules
// @Produce json
// @Param doctor_profile_id query string false "Filter by doctor"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /doctor-schedules/overrides [get]
func (h *ScheduleHandler) ListOverrides(c *gin.Context) {
	overrides, err := h.schedules.ListOverrides(c.Request.Context(),
		c.Query("doctor_profile_id"), c.Query("start_date"), c.Query("end_date"), requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overrides, nil)
}

// CreateForcedBlock godoc
// @Summary Create forced block
// @Tags Doctor Schedules
// @Accept json
// @Produce json
// @Param payload body dto.CreateForcedBlockRequest true "Forced block payload"
// @Success 201 {object} response.Envelope
// @Router /doctor-schedules/forced-blocks [post]
// ListForcedBlocks godoc
// @Summary List a doctor's forced blocks in a date range
// @Tags Doctor Schedules
// @Produce json
// @Param doctor_profile_id query string true "Doctor profile ID"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /doctor-schedules/forced-blocks [get]
func (h *ScheduleHandler) ListForcedBlocks(c *gin.Context) {
	blocks, err := h.schedules.ListForcedBlocks(c.Request.Context(),
		c.Query("doctor_profile_id"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}

func (h *ScheduleHandler) CreateForcedBlock(c *gin.Context) {
	var req dto.CreateForcedBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	block, err := h.schedules.AddForcedBlock(c.Request.Context(), req, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, block)
}

// Regenerate godoc
// @Summary Regenerate slots for a doctor and date range
// @Tags Doctor Schedules
// @Accept json
// @Produce json
// @Param payload body dto.RegenerateSlotsRequest true "Regeneration payload"
// @Success 200 {object} response.Envelope
// @Router /doctor-schedules/regenerate [post]
func (h *ScheduleHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.schedules.Regenerate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"generated": len(slots), "slots": slots}, nil)
}

// Export godoc
// @Summary Export a doctor's schedule as CSV or PDF
// @Tags Doctor Schedules
// @Produce text/csv,application/pdf
// @Param doctor_profile_id query string true "Doctor profile ID"
// @Param start_date query string true "Range start (YYYY-MM-DD)"
// @Param end_date query string true "Range end (YYYY-MM-DD)"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} byte
// @Router /doctor-schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	doctorID := c.Query("doctor_profile_id")
	if doctorID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "doctor_profile_id is required"))
		return
	}
	start, err := dto.ParseDate(c.Query("start_date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start_date"))
		return
	}
	end, err := dto.ParseDate(c.Query("end_date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid end_date"))
		return
	}
	format := service.ScheduleExportFormat(c.DefaultQuery("format", "csv"))

	result, err := h.exports.ExportSchedule(c.Request.Context(), doctorID, start, end, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
