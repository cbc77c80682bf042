package service

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

// Command types recorded in the command log.
const (
	CommandTypeScheduleAppointment = "schedule_appointment"
	CommandTypeCancelAppointment   = "cancel_appointment"
)

type bookingStore interface {
	FindCommand(ctx context.Context, idempotencyKey string) (*models.CommandRecord, error)
	CommitBooking(ctx context.Context, appt *models.Appointment, record *models.CommandRecord) error
	CancelBooking(ctx context.Context, appointmentID string, record *models.CommandRecord) (*models.Appointment, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

type bookingMetrics interface {
	BookingCommitted()
	BookingCancelled()
	CapacityConflict()
}

// BookingService executes booking commands. Every command carries an
// idempotency key; the first execution records its outcome in the command log
// and any retry replays that outcome instead of running again.
type BookingService struct {
	store     bookingStore
	cache     searchCacheInvalidator
	metrics   bookingMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService builds a BookingService with sane defaults.
func NewBookingService(store bookingStore, cache searchCacheInvalidator, metrics bookingMetrics, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		store:     store,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// ScheduleAppointment converts an active hold into a confirmed appointment.
// The hold, slot counters, appointment row and command record change in one
// transaction, so a failed commit leaves no trace.
func (s *BookingService) ScheduleAppointment(ctx context.Context, cmd dto.Command, rc models.RequestContext) (*models.Appointment, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid command")
	}

	var payload dto.ScheduleAppointmentPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed schedule payload")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	if replayed, err := s.replay(ctx, cmd.IdempotencyKey, CommandTypeScheduleAppointment); err != nil || replayed != nil {
		return replayed, err
	}

	appt := &models.Appointment{
		HoldID:    payload.HoldID,
		PatientID: payload.PatientID,
		Notes:     payload.Notes,
		BookedBy:  rc.UserID,
	}
	record := &models.CommandRecord{
		CommandID:      cmd.CommandID,
		IdempotencyKey: cmd.IdempotencyKey,
		CommandType:    CommandTypeScheduleAppointment,
	}

	if err := s.store.CommitBooking(ctx, appt, record); err != nil {
		if appErrors.HasCode(err, appErrors.ErrCapacityExceeded) && s.metrics != nil {
			s.metrics.CapacityConflict()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingCommitted()
	}
	s.invalidateSearch(ctx)
	s.logger.Info("appointment scheduled",
		zap.String("appointment_id", appt.ID),
		zap.String("hold_id", payload.HoldID),
		zap.String("slot_id", appt.SlotID),
		zap.String("booked_by", rc.UserID),
	)
	return appt, nil
}

// CancelAppointment cancels a confirmed appointment and returns its capacity
// to the slot. Cancelling twice replays the first cancellation.
func (s *BookingService) CancelAppointment(ctx context.Context, cmd dto.Command, rc models.RequestContext) (*models.Appointment, error) {
	if err := s.validator.Struct(cmd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid command")
	}

	var payload dto.CancelAppointmentPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed cancel payload")
	}
	appointmentID := payload.AppointmentID
	if appointmentID == "" {
		appointmentID = cmd.AggregateID
	}
	if appointmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment_id is required")
	}

	if replayed, err := s.replay(ctx, cmd.IdempotencyKey, CommandTypeCancelAppointment); err != nil || replayed != nil {
		return replayed, err
	}

	record := &models.CommandRecord{
		CommandID:      cmd.CommandID,
		IdempotencyKey: cmd.IdempotencyKey,
		CommandType:    CommandTypeCancelAppointment,
	}

	appt, err := s.store.CancelBooking(ctx, appointmentID, record)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingCancelled()
	}
	s.invalidateSearch(ctx)
	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", appt.ID),
		zap.String("slot_id", appt.SlotID),
		zap.String("cancelled_by", rc.UserID),
	)
	return appt, nil
}

// GetAppointment loads a confirmed or cancelled appointment by id.
func (s *BookingService) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "appointment not found")
	}
	return appt, nil
}

// replay returns the recorded appointment when the idempotency key has
// already been processed. A key reused across command types is a conflict,
// never a silent replay.
func (s *BookingService) replay(ctx context.Context, idempotencyKey, commandType string) (*models.Appointment, error) {
	record, err := s.store.FindCommand(ctx, idempotencyKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check command log")
	}
	if record == nil {
		return nil, nil
	}
	if record.CommandType != commandType {
		return nil, appErrors.Clone(appErrors.ErrConflict, "idempotency key was used by a different command")
	}

	var appt models.Appointment
	if err := json.Unmarshal(record.Result, &appt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt command record")
	}
	s.logger.Info("command replayed",
		zap.String("command_type", commandType),
		zap.String("aggregate_id", record.AggregateID),
	)
	return &appt, nil
}

func (s *BookingService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, availabilityCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
