package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

type holdStore interface {
	Acquire(ctx context.Context, hold *models.TentativeHold) error
	FindByID(ctx context.Context, id string) (*models.TentativeHold, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.TentativeHold, error)
	ListActiveForSlot(ctx context.Context, slotID string, now time.Time) ([]models.TentativeHold, error)
	ReleaseActiveForSlot(ctx context.Context, slotID, heldBy string, notes *string) (int64, error)
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type slotReader interface {
	FindByID(ctx context.Context, id string) (*models.Slot, error)
}

type holdMetrics interface {
	HoldCreated()
	HoldsExpired(count int64)
	CapacityConflict()
}

// HoldService manages tentative holds: the concurrency gate in front of
// booking. Capacity decisions happen inside the store's acquire transaction;
// this service owns validation, idempotent replay and the expiry sweep.
type HoldService struct {
	holds     holdStore
	slots     slotReader
	cache     searchCacheInvalidator
	metrics   holdMetrics
	cfg       config.HoldsConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHoldService builds a HoldService with sane defaults.
func NewHoldService(holds holdStore, slots slotReader, cache searchCacheInvalidator, metrics holdMetrics, cfg config.HoldsConfig, validate *validator.Validate, logger *zap.Logger) *HoldService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 10 * time.Minute
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = 30 * time.Minute
	}
	return &HoldService{
		holds:     holds,
		slots:     slots,
		cache:     cache,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// CreateHold acquires a tentative hold on a slot. A retried request carrying
// the same idempotency key returns the original hold without creating a
// duplicate.
func (s *HoldService) CreateHold(ctx context.Context, slotID string, req dto.CreateHoldRequest, idempotencyKey string, rc models.RequestContext) (*models.TentativeHold, error) {
	if idempotencyKey == "" {
		return nil, appErrors.ErrIdempotencyKey
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hold payload")
	}

	holdType := models.HoldType(req.HoldType)
	if !holdType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown hold_type %q", req.HoldType))
	}

	if existing, err := s.holds.FindByIdempotencyKey(ctx, idempotencyKey); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check idempotency key")
	} else if existing != nil {
		return existing, nil
	}

	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slot not found")
	}
	if slot.Status == models.SlotStatusBlocked {
		return nil, appErrors.ErrSlotBlocked
	}

	mode, err := resolveHoldMode(slot, req.ConsultationMode)
	if err != nil {
		return nil, err
	}

	duration := s.cfg.DefaultDuration
	if req.HoldDurationMinutes > 0 {
		duration = time.Duration(req.HoldDurationMinutes) * time.Minute
		if duration > s.cfg.MaxDuration {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("hold_duration_minutes exceeds the maximum of %d", int(s.cfg.MaxDuration.Minutes())))
		}
	}

	hold := &models.TentativeHold{
		SlotID:           slotID,
		HospitalID:       rc.HospitalID,
		PatientID:        req.PatientID,
		HoldType:         holdType,
		ConsultationMode: mode,
		HeldBy:           rc.UserID,
		IdempotencyKey:   idempotencyKey,
		ExpiresAt:        time.Now().UTC().Add(duration),
		Notes:            req.Notes,
	}

	if err := s.holds.Acquire(ctx, hold); err != nil {
		if appErrors.HasCode(err, appErrors.ErrCapacityExceeded) && s.metrics != nil {
			s.metrics.CapacityConflict()
		}
		if appErrors.HasCode(err, appErrors.ErrConflict) {
			// Lost a race against our own retry; the winner's row is the answer.
			if existing, findErr := s.holds.FindByIdempotencyKey(ctx, idempotencyKey); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.HoldCreated()
	}
	s.invalidateSearch(ctx)
	s.logger.Info("hold acquired",
		zap.String("hold_id", hold.ID),
		zap.String("slot_id", slotID),
		zap.String("held_by", rc.UserID),
		zap.Time("expires_at", hold.ExpiresAt),
	)
	return hold, nil
}

// ReleaseHold releases the caller's active holds on a slot. Releasing a hold
// that is already released or expired is a no-op, not an error.
func (s *HoldService) ReleaseHold(ctx context.Context, slotID string, req dto.ReleaseHoldRequest, rc models.RequestContext) error {
	if _, err := s.slots.FindByID(ctx, slotID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slot not found")
	}

	released, err := s.holds.ReleaseActiveForSlot(ctx, slotID, rc.UserID, req.Notes)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release hold")
	}
	if released > 0 {
		s.invalidateSearch(ctx)
	}
	return nil
}

// GetHold loads a hold by id regardless of its lifecycle state.
func (s *HoldService) GetHold(ctx context.Context, id string) (*models.TentativeHold, error) {
	hold, err := s.holds.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "hold not found")
	}
	return hold, nil
}

// ListActiveHolds returns the unexpired active holds on a slot.
func (s *HoldService) ListActiveHolds(ctx context.Context, slotID string) ([]models.TentativeHold, error) {
	if _, err := s.slots.FindByID(ctx, slotID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "slot not found")
	}
	holds, err := s.holds.ListActiveForSlot(ctx, slotID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list holds")
	}
	return holds, nil
}

// RunSweeper periodically flips overdue holds to expired until ctx ends.
// The sweep is cosmetic bookkeeping: capacity paths already treat overdue
// holds as inactive via expires_at.
func (s *HoldService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.holds.ExpireDue(ctx, time.Now().UTC())
			if err != nil {
				s.logger.Warn("hold expiry sweep failed", zap.Error(err))
				continue
			}
			if expired > 0 {
				if s.metrics != nil {
					s.metrics.HoldsExpired(expired)
				}
				s.invalidateSearch(ctx)
				s.logger.Info("holds expired", zap.Int64("count", expired))
			}
		}
	}
}

func (s *HoldService) invalidateSearch(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, availabilityCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}

// resolveHoldMode picks the consultation mode a hold reserves against. Slots
// offering both modes require the caller to choose; single-mode slots accept
// only their own mode.
func resolveHoldMode(slot *models.Slot, requested string) (models.ConsultationMode, error) {
	if requested == "" {
		if slot.ConsultationMode == models.ModeBoth {
			return "", appErrors.Clone(appErrors.ErrValidation, "consultation_mode is required for slots offering both modes")
		}
		return slot.ConsultationMode, nil
	}

	mode := models.ConsultationMode(requested)
	if mode != models.ModeInPerson && mode != models.ModeTele {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown consultation_mode %q", requested))
	}
	if slot.ConsultationMode != models.ModeBoth && slot.ConsultationMode != mode {
		return "", appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("slot does not offer %s consultations", mode))
	}
	return mode, nil
}
