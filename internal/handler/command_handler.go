package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/service"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/response"
)

// CommandHandler serves the booking command endpoints.
type CommandHandler struct {
	bookings *service.BookingService
}

// NewCommandHandler constructs handler.
func NewCommandHandler(bookings *service.BookingService) *CommandHandler {
	return &CommandHandler{bookings: bookings}
}

// ScheduleAppointment godoc
// @Summary Convert a hold into a confirmed appointment
// @Tags Commands
// @Accept json
// @Produce json
// @Param payload body dto.Command true "Schedule appointment command"
// @Success 201 {object} response.Envelope
// @Router /commands/schedule-appointment [post]
func (h *CommandHandler) ScheduleAppointment(c *gin.Context) {
	var cmd dto.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	appt, err := h.bookings.ScheduleAppointment(c.Request.Context(), cmd, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, appt)
}

// CancelAppointment godoc
// @Summary Cancel a confirmed appointment
// @Tags Commands
// @Accept json
// @Produce json
// @Param payload body dto.Command true "Cancel appointment command"
// @Success 200 {object} response.Envelope
// @Router /commands/cancel-appointment [post]
func (h *CommandHandler) CancelAppointment(c *gin.Context) {
	var cmd dto.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	appt, err := h.bookings.CancelAppointment(c.Request.Context(), cmd, requestContextFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// GetAppointment godoc
// @Summary Get an appointment
// @Tags Commands
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *CommandHandler) GetAppointment(c *gin.Context) {
	appt, err := h.bookings.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}
