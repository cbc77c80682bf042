package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/middleware"
	"github.com/medhaven/clinic-scheduling-api/internal/service"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/response"
)

// SlotHandler serves availability reads and per-slot hold operations.
type SlotHandler struct {
	availability *service.AvailabilityService
	holds        *service.HoldService
	schedules    *service.ScheduleService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(availability *service.AvailabilityService, holds *service.HoldService, schedules *service.ScheduleService) *SlotHandler {
	return &SlotHandler{availability: availability, holds: holds, schedules: schedules}
}

// Availability godoc
// @Summary Search bookable slots
// @Tags Appointment Slots
// @Produce json
// @Param doctor_profile_id query string false "Filter by doctor"
// @Param location_id query string false "Filter by location"
// @Param specialty query string false "Filter by specialty"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Param consultation_mode query string false "in_person or tele_consultation"
// @Success 200 {object} response.Envelope
// @Router /appointment-slots/availability [get]
func (h *SlotHandler) Availability(c *gin.Context) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	slots, cacheHit, err := h.availability.Search(c.Request.Context(), query, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, slots, nil, middleware.ExtractMeta(c))
}

// AdminSearch godoc
// @Summary Search all slots including blocked and full ones
// @Tags Appointment Slots
// @Produce json
// @Param doctor_profile_id query string false "Filter by doctor"
// @Param location_id query string false "Filter by location"
// @Param specialty query string false "Filter by specialty"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Param consultation_mode query string false "in_person or tele_consultation"
// @Success 200 {object} response.Envelope
// @Router /appointment-slots/admin/search [get]
func (h *SlotHandler) AdminSearch(c *gin.Context) {
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	slots, err := h.availability.AdminSearch(c.Request.Context(), query, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get a slot with live remaining capacity
// @Tags Appointment Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /appointment-slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.availability.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// CreateHold godoc
// @Summary Acquire a tentative hold on a slot
// @Tags Appointment Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param Idempotency-Key header string true "Idempotency key"
// @Param payload body dto.CreateHoldRequest true "Hold payload"
// @Success 201 {object} response.Envelope
// @Router /appointment-slots/{id}/hold [post]
func (h *SlotHandler) CreateHold(c *gin.Context) {
	var req dto.CreateHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	hold, err := h.holds.CreateHold(c.Request.Context(), c.Param("id"), req,
		c.GetHeader(middleware.HeaderIdempotencyKey), requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hold)
}

// ReleaseHold godoc
// @Summary Release the caller's active holds on a slot
// @Tags Appointment Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /appointment-slots/{id}/hold [delete]
func (h *SlotHandler) ReleaseHold(c *gin.Context) {
	var req dto.ReleaseHoldRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	if err := h.holds.ReleaseHold(c.Request.Context(), c.Param("id"), req, requestContextFrom(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetHold godoc
// @Summary Get a hold by id
// @Tags Appointment Slots
// @Produce json
// @Param id path string true "Hold ID"
// @Success 200 {object} response.Envelope
// @Router /holds/{id} [get]
func (h *SlotHandler) GetHold(c *gin.Context) {
	hold, err := h.holds.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, hold, nil)
}

// ListHolds godoc
// @Summary List active holds on a slot
// @Tags Appointment Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /appointment-slots/{id}/holds [get]
func (h *SlotHandler) ListHolds(c *gin.Context) {
	holds, err := h.holds.ListActiveHolds(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, holds, nil)
}

// Block godoc
// @Summary Manually block a slot
// @Tags Appointment Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body dto.BlockSlotRequest true "Block payload"
// @Success 200 {object} response.Envelope
// @Router /appointment-slots/{id}/block [post]
func (h *SlotHandler) Block(c *gin.Context) {
	var req dto.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	slot, err := h.schedules.BlockSlot(c.Request.Context(), c.Param("id"), req, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
