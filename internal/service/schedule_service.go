package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/jobs"
)

type scheduleStore interface {
	CreateBaseSchedule(ctx context.Context, schedule *models.BaseSchedule) error
	ListBaseSchedules(ctx context.Context, filter models.BaseScheduleFilter) ([]models.BaseSchedule, error)
	FindBaseScheduleByID(ctx context.Context, id string) (*models.BaseSchedule, error)
	FindOverlapping(ctx context.Context, candidate *models.BaseSchedule) ([]models.BaseSchedule, error)
	DeactivateBaseSchedule(ctx context.Context, id string) error
	CreateOverride(ctx context.Context, override *models.ScheduleOverride) error
	ListOverrides(ctx context.Context, filter models.OverrideFilter) ([]models.ScheduleOverride, error)
	CreateForcedBlock(ctx context.Context, block *models.ForcedBlock) error
	ListForcedBlocks(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.ForcedBlock, error)
	FindDoctorProfile(ctx context.Context, id string) (*models.DoctorProfile, error)
	FindLocation(ctx context.Context, id string) (*models.Location, error)
}

type slotGenerator interface {
	Generate(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.Slot, error)
}

type regenEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type slotBlocker interface {
	Block(ctx context.Context, slotID, reason, blockedBy string) (*models.Slot, error)
}

type searchCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ScheduleService owns schedule definitions: weekly templates, date
// overrides and forced blocks. Definition changes mark the affected range
// stale by enqueueing regeneration and dropping cached search results.
type ScheduleService struct {
	repo      scheduleStore
	generator slotGenerator
	regenJobs regenEnqueuer
	slots     slotBlocker
	cache     searchCacheInvalidator
	cfg       config.SlotsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService builds a ScheduleService with sane defaults.
func NewScheduleService(repo scheduleStore, generator slotGenerator, regenJobs regenEnqueuer, slots slotBlocker, cache searchCacheInvalidator, cfg config.SlotsConfig, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:      repo,
		generator: generator,
		regenJobs: regenJobs,
		slots:     slots,
		cache:     cache,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// CreateBaseSchedule validates and stores a new weekly template.
func (s *ScheduleService) CreateBaseSchedule(ctx context.Context, req dto.CreateBaseScheduleRequest, rc models.RequestContext) (*models.BaseSchedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid base schedule payload")
	}

	mode := models.ConsultationMode(req.ConsultationMode)
	if err := validateDefinitionTimes(req.StartTime, req.EndTime, mode, req.MaxInPersonCapacity, req.MaxTeleCapacity, req.MaxAppointments); err != nil {
		return nil, err
	}

	effectiveFrom, err := dto.ParseDate(req.EffectiveFrom)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_from date")
	}
	var effectiveUntil *time.Time
	if req.EffectiveUntil != "" {
		until, err := dto.ParseDate(req.EffectiveUntil)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid effective_until date")
		}
		if until.Before(effectiveFrom) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "effective_until precedes effective_from")
		}
		effectiveUntil = &until
	}

	if err := s.ensureDoctorAndLocation(ctx, req.DoctorProfileID, req.LocationID); err != nil {
		return nil, err
	}

	schedule := &models.BaseSchedule{
		HospitalID:          rc.HospitalID,
		DoctorProfileID:     req.DoctorProfileID,
		LocationID:          req.LocationID,
		DayOfWeek:           req.DayOfWeek,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferTimeMinutes:   req.BufferTimeMinutes,
		MaxAppointments:     req.MaxAppointments,
		ConsultationMode:    mode,
		MaxInPersonCapacity: req.MaxInPersonCapacity,
		MaxTeleCapacity:     req.MaxTeleCapacity,
		EffectiveFrom:       effectiveFrom,
		EffectiveUntil:      effectiveUntil,
		IsActive:            true,
		CreatedBy:           rc.UserID,
	}

	overlapping, err := s.repo.FindOverlapping(ctx, schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check schedule overlap")
	}
	if len(overlapping) > 0 {
		conflict := &models.ScheduleConflictError{
			Message:    "base schedule overlaps an existing definition for this doctor, location and weekday",
			Existing:   &overlapping[0],
			ConflictOn: "day_of_week",
		}
		return nil, appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Message)
	}

	if err := s.repo.CreateBaseSchedule(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create base schedule")
	}

	s.markStale(ctx, schedule.DoctorProfileID, schedule.EffectiveFrom, schedule.EffectiveUntil)
	return schedule, nil
}

// ListBaseSchedules returns templates for a doctor, optionally per location.
func (s *ScheduleService) ListBaseSchedules(ctx context.Context, doctorProfileID, locationID string, rc models.RequestContext) ([]models.BaseSchedule, error) {
	if doctorProfileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor_profile_id is required")
	}
	schedules, err := s.repo.ListBaseSchedules(ctx, models.BaseScheduleFilter{
		HospitalID:      rc.HospitalID,
		DoctorProfileID: doctorProfileID,
		LocationID:      locationID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list base schedules")
	}
	return schedules, nil
}

// DeactivateBaseSchedule retires a template without deleting its history.
func (s *ScheduleService) DeactivateBaseSchedule(ctx context.Context, id string) error {
	schedule, err := s.repo.FindBaseScheduleByID(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "base schedule not found")
	}
	if err := s.repo.DeactivateBaseSchedule(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate base schedule")
	}
	s.markStale(ctx, schedule.DoctorProfileID, time.Now().UTC(), schedule.EffectiveUntil)
	return nil
}

// AddOverride stores a date-specific replacement for a doctor's day.
func (s *ScheduleService) AddOverride(ctx context.Context, req dto.CreateOverrideRequest, rc models.RequestContext) (*models.ScheduleOverride, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override payload")
	}

	mode := models.ConsultationMode(req.ConsultationMode)
	if err := validateDefinitionTimes(req.StartTime, req.EndTime, mode, req.MaxInPersonCapacity, req.MaxTeleCapacity, req.MaxAppointments); err != nil {
		return nil, err
	}

	overrideDate, err := dto.ParseDate(req.OverrideDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid override_date")
	}

	if err := s.ensureDoctorAndLocation(ctx, req.DoctorProfileID, req.LocationID); err != nil {
		return nil, err
	}

	override := &models.ScheduleOverride{
		HospitalID:          rc.HospitalID,
		DoctorProfileID:     req.DoctorProfileID,
		LocationID:          req.LocationID,
		OverrideDate:        overrideDate,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		BufferTimeMinutes:   req.BufferTimeMinutes,
		MaxAppointments:     req.MaxAppointments,
		ConsultationMode:    mode,
		MaxInPersonCapacity: req.MaxInPersonCapacity,
		MaxTeleCapacity:     req.MaxTeleCapacity,
		Reason:              req.Reason,
		CreatedBy:           rc.UserID,
	}

	if err := s.repo.CreateOverride(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create override")
	}

	until := overrideDate
	s.markStale(ctx, override.DoctorProfileID, overrideDate, &until)
	return override, nil
}

// ListOverrides returns a doctor's overrides within an optional date range.
func (s *ScheduleService) ListOverrides(ctx context.Context, doctorProfileID, startDate, endDate string, rc models.RequestContext) ([]models.ScheduleOverride, error) {
	if doctorProfileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor_profile_id is required")
	}
	filter := models.OverrideFilter{HospitalID: rc.HospitalID, DoctorProfileID: doctorProfileID}
	if startDate != "" {
		start, err := dto.ParseDate(startDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
		}
		filter.StartDate = &start
	}
	if endDate != "" {
		end, err := dto.ParseDate(endDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		filter.EndDate = &end
	}
	overrides, err := s.repo.ListOverrides(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overrides")
	}
	return overrides, nil
}

// AddForcedBlock records a hard unavailability interval for a doctor.
func (s *ScheduleService) AddForcedBlock(ctx context.Context, req dto.CreateForcedBlockRequest, rc models.RequestContext) (*models.ForcedBlock, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid forced block payload")
	}

	start, err := time.Parse(time.RFC3339, req.StartDatetime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_datetime")
	}
	end, err := time.Parse(time.RFC3339, req.EndDatetime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_datetime")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_datetime must precede end_datetime")
	}

	if _, err := s.repo.FindDoctorProfile(ctx, req.DoctorProfileID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "doctor profile not found")
	}

	block := &models.ForcedBlock{
		HospitalID:      rc.HospitalID,
		DoctorProfileID: req.DoctorProfileID,
		StartDatetime:   start.UTC(),
		EndDatetime:     end.UTC(),
		Reason:          req.Reason,
		Notes:           req.Notes,
		CreatedBy:       rc.UserID,
	}
	if err := s.repo.CreateForcedBlock(ctx, block); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create forced block")
	}

	blockEnd := block.EndDatetime
	s.markStale(ctx, block.DoctorProfileID, block.StartDatetime, &blockEnd)
	return block, nil
}

// ListForcedBlocks returns a doctor's blocks intersecting the given range.
// An omitted range defaults to the generation horizon from now.
func (s *ScheduleService) ListForcedBlocks(ctx context.Context, doctorProfileID, startDate, endDate string) ([]models.ForcedBlock, error) {
	if doctorProfileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "doctor_profile_id is required")
	}

	start := time.Now().UTC()
	if startDate != "" {
		parsed, err := dto.ParseDate(startDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
		}
		start = parsed
	}
	end := start.AddDate(0, 0, s.cfg.HorizonDays)
	if endDate != "" {
		parsed, err := dto.ParseDate(endDate)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		end = parsed.AddDate(0, 0, 1)
	}
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date precedes start_date")
	}

	blocks, err := s.repo.ListForcedBlocks(ctx, doctorProfileID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forced blocks")
	}
	return blocks, nil
}

// Regenerate rebuilds slots for a doctor and range synchronously.
func (s *ScheduleService) Regenerate(ctx context.Context, req dto.RegenerateSlotsRequest) ([]models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid regenerate payload")
	}
	start, err := dto.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
	}
	end, err := dto.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
	}

	slots, err := s.generator.Generate(ctx, req.DoctorProfileID, start, end)
	if err != nil {
		return nil, err
	}
	s.invalidateSearch(ctx, req.DoctorProfileID)
	return slots, nil
}

// BlockSlot manually blocks a single generated slot. A manual block sticks
// until lifted even when the slot is regenerated.
func (s *ScheduleService) BlockSlot(ctx context.Context, slotID string, req dto.BlockSlotRequest, rc models.RequestContext) (*models.Slot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid block payload")
	}

	slot, err := s.slots.Block(ctx, slotID, req.Reason, rc.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slot not found")
	}

	s.invalidateSearch(ctx, slot.DoctorProfileID)
	s.logger.Info("slot blocked",
		zap.String("slot_id", slotID),
		zap.String("blocked_by", rc.UserID),
		zap.String("reason", req.Reason),
	)
	return slot, nil
}

// markStale queues regeneration for the affected window and drops cached
// search results so the read path converges on the new definitions.
func (s *ScheduleService) markStale(ctx context.Context, doctorProfileID string, from time.Time, until *time.Time) {
	start := time.Now().UTC()
	if from.After(start) {
		start = from
	}
	end := start.AddDate(0, 0, s.cfg.HorizonDays)
	if until != nil && until.Before(end) {
		end = *until
	}
	if end.Before(start) {
		return
	}

	if s.regenJobs != nil {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: RegenJobType,
			Payload: RegenPayload{
				DoctorProfileID: doctorProfileID,
				StartDate:       start,
				EndDate:         end,
			},
		}
		if err := s.regenJobs.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue slot regeneration",
				zap.String("doctor_profile_id", doctorProfileID), zap.Error(err))
		}
	}
	s.invalidateSearch(ctx, doctorProfileID)
}

func (s *ScheduleService) invalidateSearch(ctx context.Context, doctorProfileID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, availabilityCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			zap.String("doctor_profile_id", doctorProfileID), zap.Error(err))
	}
}

func (s *ScheduleService) ensureDoctorAndLocation(ctx context.Context, doctorProfileID, locationID string) error {
	if _, err := s.repo.FindDoctorProfile(ctx, doctorProfileID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "doctor profile not found")
	}
	if _, err := s.repo.FindLocation(ctx, locationID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "location not found")
	}
	return nil
}

// validateDefinitionTimes enforces the shared invariants of base schedules
// and overrides: a well-formed daily window, a known mode, and a capacity
// split that sums to the per-slot maximum when both modes are offered.
func validateDefinitionTimes(startTime, endTime string, mode models.ConsultationMode, maxIn, maxTele, maxAppointments int) error {
	startMin, err := models.ParseClock(startTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid start_time")
	}
	endMin, err := models.ParseClock(endTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid end_time")
	}
	if startMin >= endMin {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must precede end_time")
	}
	if !mode.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown consultation_mode %q", mode))
	}
	if mode == models.ModeBoth {
		if maxIn+maxTele == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "mode \"both\" requires a non-zero capacity split")
		}
		if maxIn+maxTele != maxAppointments {
			return appErrors.Clone(appErrors.ErrValidation, "capacity split must sum to max_appointments_per_slot")
		}
	}
	return nil
}
