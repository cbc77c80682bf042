package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/jobs"
)

// RegenJobType identifies slot regeneration jobs on the worker queue.
const RegenJobType = "regenerate_slots"

// RegenPayload is the queue payload for a regeneration job.
type RegenPayload struct {
	DoctorProfileID string
	StartDate       time.Time
	EndDate         time.Time
}

type definitionReader interface {
	ListBaseSchedules(ctx context.Context, filter models.BaseScheduleFilter) ([]models.BaseSchedule, error)
	ListOverrides(ctx context.Context, filter models.OverrideFilter) ([]models.ScheduleOverride, error)
	ListForcedBlocks(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.ForcedBlock, error)
	FindDoctorProfile(ctx context.Context, id string) (*models.DoctorProfile, error)
}

type slotWriter interface {
	UpsertGenerated(ctx context.Context, slots []models.Slot) ([]string, error)
}

type generatorMetrics interface {
	SlotsGenerated(count int, duration time.Duration)
}

// SlotGeneratorService expands schedule definitions into concrete bookable
// slots. Generation is deterministic for identical inputs and idempotent:
// rerunning it refreshes rows by natural key without duplicating them.
type SlotGeneratorService struct {
	definitions definitionReader
	slots       slotWriter
	metrics     generatorMetrics
	logger      *zap.Logger
}

// NewSlotGeneratorService builds the generator.
func NewSlotGeneratorService(definitions definitionReader, slots slotWriter, metrics generatorMetrics, logger *zap.Logger) *SlotGeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotGeneratorService{definitions: definitions, slots: slots, metrics: metrics, logger: logger}
}

// slotDefinition is the per-date effective definition after override
// resolution.
type slotDefinition struct {
	source     models.ScheduleSource
	hospitalID string
	locationID string
	startMin   int
	endMin     int
	duration   int
	buffer     int
	mode       models.ConsultationMode
	maxIn      int
	maxTele    int
	maxTotal   int
}

// Generate expands definitions for the doctor across [start, end] (calendar
// dates, inclusive), applies forced blocks, and upserts the result.
func (s *SlotGeneratorService) Generate(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.Slot, error) {
	began := time.Now()

	if _, err := s.definitions.FindDoctorProfile(ctx, doctorProfileID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "doctor profile not found")
	}

	start = dateOnly(start)
	end = dateOnly(end)
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	schedules, err := s.definitions.ListBaseSchedules(ctx, models.BaseScheduleFilter{
		DoctorProfileID: doctorProfileID,
		ActiveOnly:      true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load base schedules")
	}

	overrides, err := s.definitions.ListOverrides(ctx, models.OverrideFilter{
		DoctorProfileID: doctorProfileID,
		StartDate:       &start,
		EndDate:         &end,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load overrides")
	}

	blocks, err := s.definitions.ListForcedBlocks(ctx, doctorProfileID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load forced blocks")
	}

	var generated []models.Slot
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		defs, err := effectiveDefinitions(date, schedules, overrides)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed schedule definition")
		}
		for _, def := range defs {
			generated = append(generated, expandDefinition(doctorProfileID, date, def, blocks)...)
		}
	}

	sort.Slice(generated, func(i, j int) bool {
		a, b := generated[i], generated[j]
		if !a.SlotDate.Equal(b.SlotDate) {
			return a.SlotDate.Before(b.SlotDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.LocationID < b.LocationID
	})

	clamped, err := s.slots.UpsertGenerated(ctx, generated)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated slots")
	}
	if len(clamped) > 0 {
		s.logger.Warn("capacity shrink clamped to committed bookings",
			zap.String("doctor_profile_id", doctorProfileID),
			zap.Strings("slot_ids", clamped),
		)
	}

	if s.metrics != nil {
		s.metrics.SlotsGenerated(len(generated), time.Since(began))
	}
	s.logger.Info("slots generated",
		zap.String("doctor_profile_id", doctorProfileID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("count", len(generated)),
	)
	return generated, nil
}

// HandleRegenJob adapts Generate to the worker queue contract.
func (s *SlotGeneratorService) HandleRegenJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(RegenPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for %s job", job.Payload, RegenJobType)
	}
	_, err := s.Generate(ctx, payload.DoctorProfileID, payload.StartDate, payload.EndDate)
	return err
}

// effectiveDefinitions resolves the definitions in force for one date. An
// override for the exact date replaces the base schedule for its location;
// base schedules apply only where no override exists for that location.
func effectiveDefinitions(date time.Time, schedules []models.BaseSchedule, overrides []models.ScheduleOverride) ([]slotDefinition, error) {
	var defs []slotDefinition
	overridden := make(map[string]bool)

	for _, o := range overrides {
		if !dateOnly(o.OverrideDate).Equal(date) {
			continue
		}
		def, err := definitionFromParams(models.SourceOverride, o.HospitalID, o.LocationID,
			o.StartTime, o.EndTime, o.SlotDurationMinutes, o.BufferTimeMinutes,
			o.ConsultationMode, o.MaxInPersonCapacity, o.MaxTeleCapacity, o.MaxAppointments)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
		overridden[o.LocationID] = true
	}

	weekday := int(date.Weekday())
	for _, b := range schedules {
		if b.DayOfWeek != weekday || !b.Covers(date) || overridden[b.LocationID] {
			continue
		}
		def, err := definitionFromParams(models.SourceBaseSchedule, b.HospitalID, b.LocationID,
			b.StartTime, b.EndTime, b.SlotDurationMinutes, b.BufferTimeMinutes,
			b.ConsultationMode, b.MaxInPersonCapacity, b.MaxTeleCapacity, b.MaxAppointments)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, nil
}

func definitionFromParams(source models.ScheduleSource, hospitalID, locationID, startTime, endTime string,
	duration, buffer int, mode models.ConsultationMode, maxIn, maxTele, maxAppointments int) (slotDefinition, error) {

	startMin, err := models.ParseClock(startTime)
	if err != nil {
		return slotDefinition{}, err
	}
	endMin, err := models.ParseClock(endTime)
	if err != nil {
		return slotDefinition{}, err
	}

	def := slotDefinition{
		source:     source,
		hospitalID: hospitalID,
		locationID: locationID,
		startMin:   startMin,
		endMin:     endMin,
		duration:   duration,
		buffer:     buffer,
		mode:       mode,
	}

	switch mode {
	case models.ModeBoth:
		def.maxIn = maxIn
		def.maxTele = maxTele
		def.maxTotal = maxIn + maxTele
	case models.ModeTele:
		def.maxTele = maxAppointments
		def.maxTotal = maxAppointments
	default:
		def.maxIn = maxAppointments
		def.maxTotal = maxAppointments
	}
	return def, nil
}

// expandDefinition partitions the definition's daily window into slots of the
// bookable duration, stepping by duration plus buffer. A trailing window
// shorter than the full duration is discarded, never emitted short.
func expandDefinition(doctorProfileID string, date time.Time, def slotDefinition, blocks []models.ForcedBlock) []models.Slot {
	var slots []models.Slot
	step := def.duration + def.buffer
	if def.duration <= 0 || step <= 0 {
		return nil
	}

	for winStart := def.startMin; winStart+def.duration <= def.endMin; winStart += step {
		winEnd := winStart + def.duration
		slot := models.Slot{
			HospitalID:          def.hospitalID,
			DoctorProfileID:     doctorProfileID,
			LocationID:          def.locationID,
			ScheduleSource:      def.source,
			SlotDate:            date,
			StartTime:           models.FormatClock(winStart),
			EndTime:             models.FormatClock(winEnd),
			DurationMinutes:     def.duration,
			ConsultationMode:    def.mode,
			MaxCapacity:         def.maxTotal,
			MaxInPersonCapacity: def.maxIn,
			MaxTeleCapacity:     def.maxTele,
			Status:              models.SlotStatusAvailable,
		}

		// Forced blocks win over everything, overrides included.
		slotStart := date.Add(time.Duration(winStart) * time.Minute)
		slotEnd := date.Add(time.Duration(winEnd) * time.Minute)
		for i := range blocks {
			if blocks[i].Intersects(slotStart, slotEnd) {
				reason := blocks[i].Reason
				slot.Status = models.SlotStatusBlocked
				slot.BlockedReason = &reason
				break
			}
		}

		slots = append(slots, slot)
	}
	return slots
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
