package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

const availabilityCachePrefix = "availability:search:"

type slotSearcher interface {
	Search(ctx context.Context, filter models.SlotFilter, now time.Time) ([]dto.SlotView, error)
	FindByID(ctx context.Context, id string) (*models.Slot, error)
}

type holdCounter interface {
	CountActiveForSlot(ctx context.Context, slotID string, now time.Time) (total, inPerson, tele int, err error)
}

type searchCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AvailabilityService answers "what is bookable" queries by combining
// generated slots with live hold state. It is a pure read path; the only
// side effect is populating the search cache.
type AvailabilityService struct {
	slots    slotSearcher
	holds    holdCounter
	cache    searchCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAvailabilityService builds the query engine.
func NewAvailabilityService(slots slotSearcher, holds holdCounter, cache searchCache, cacheTTL time.Duration, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{slots: slots, holds: holds, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Search serves the patient-facing availability query: blocked slots never
// appear and slots whose effective remaining capacity is zero are dropped.
// The boolean result reports whether the response came from cache.
func (s *AvailabilityService) Search(ctx context.Context, query dto.AvailabilityQuery, rc models.RequestContext) ([]dto.SlotView, bool, error) {
	filter, err := buildSlotFilter(query, rc)
	if err != nil {
		return nil, false, err
	}

	key := searchCacheKey(filter)
	if s.cache != nil {
		var cached []dto.SlotView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, true, nil
		}
	}

	views, err := s.slots.Search(ctx, filter, time.Now().UTC())
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search availability")
	}

	results := make([]dto.SlotView, 0, len(views))
	for i := range views {
		view := views[i]
		fillRemaining(&view)
		if !bookable(&view, filter.ConsultationMode) {
			continue
		}
		results = append(results, view)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, results, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache availability results", zap.Error(err))
		}
	}
	return results, false, nil
}

// AdminSearch is the schedule-management view: blocked and fully booked
// slots are included with their status visible, and nothing is cached.
func (s *AvailabilityService) AdminSearch(ctx context.Context, query dto.AvailabilityQuery, rc models.RequestContext) ([]dto.SlotView, error) {
	filter, err := buildSlotFilter(query, rc)
	if err != nil {
		return nil, err
	}
	filter.IncludeClosed = true

	views, err := s.slots.Search(ctx, filter, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search availability")
	}
	for i := range views {
		fillRemaining(&views[i])
	}
	return views, nil
}

// GetSlot returns one slot with its live hold counts.
func (s *AvailabilityService) GetSlot(ctx context.Context, id string) (*dto.SlotView, error) {
	slot, err := s.slots.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slot not found")
	}

	total, inPerson, tele, err := s.holds.CountActiveForSlot(ctx, id, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count holds")
	}

	view := dto.SlotView{Slot: *slot, ActiveHolds: total, InPersonHolds: inPerson, TeleHolds: tele}
	fillRemaining(&view)
	return &view, nil
}

func buildSlotFilter(query dto.AvailabilityQuery, rc models.RequestContext) (models.SlotFilter, error) {
	filter := models.SlotFilter{
		HospitalID:      rc.HospitalID,
		DoctorProfileID: query.DoctorProfileID,
		LocationID:      query.LocationID,
		Specialty:       query.Specialty,
	}

	if query.StartDate != "" {
		start, err := dto.ParseDate(query.StartDate)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid start_date")
		}
		filter.StartDate = &start
	}
	if query.EndDate != "" {
		end, err := dto.ParseDate(query.EndDate)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "invalid end_date")
		}
		filter.EndDate = &end
	}
	if query.ConsultationMode != "" {
		mode := models.ConsultationMode(query.ConsultationMode)
		if !mode.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown consultation_mode %q", query.ConsultationMode))
		}
		filter.ConsultationMode = mode
	}
	return filter, nil
}

// fillRemaining derives the display capacity figures from committed bookings
// and active holds. Values are clamped at zero for presentation.
func fillRemaining(view *dto.SlotView) {
	view.RemainingTotal = clampZero(view.MaxCapacity - view.CurrentBookings - view.ActiveHolds)
	view.RemainingInPerson = clampZero(view.Slot.Remaining(models.ModeInPerson, view.InPersonHolds, view.ActiveHolds))
	view.RemainingTele = clampZero(view.Slot.Remaining(models.ModeTele, view.TeleHolds, view.ActiveHolds))
}

// bookable decides whether the patient-facing search should surface a slot.
func bookable(view *dto.SlotView, mode models.ConsultationMode) bool {
	if view.Status == models.SlotStatusBlocked {
		return false
	}
	switch mode {
	case models.ModeInPerson:
		return view.RemainingInPerson > 0
	case models.ModeTele:
		return view.RemainingTele > 0
	default:
		return view.RemainingTotal > 0
	}
}

func searchCacheKey(filter models.SlotFilter) string {
	start, end := "", ""
	if filter.StartDate != nil {
		start = filter.StartDate.Format("2006-01-02")
	}
	if filter.EndDate != nil {
		end = filter.EndDate.Format("2006-01-02")
	}
	return fmt.Sprintf("%s%s:%s:%s:%s:%s:%s:%s", availabilityCachePrefix,
		filter.HospitalID, filter.DoctorProfileID, filter.LocationID, filter.Specialty, start, end, filter.ConsultationMode)
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
