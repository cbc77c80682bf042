package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

// stubHoldStore enforces a fixed capacity under a mutex, mirroring what the
// real store does inside its row-locking transaction.
type stubHoldStore struct {
	mu       sync.Mutex
	capacity int
	acquired int
	byKey    map[string]*models.TentativeHold

	acquireErr error
	released   int64
	expired    int64
}

func (s *stubHoldStore) Acquire(_ context.Context, hold *models.TentativeHold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquireErr != nil {
		return s.acquireErr
	}
	if s.acquired >= s.capacity {
		return appErrors.ErrCapacityExceeded
	}
	s.acquired++
	hold.ID = fmt.Sprintf("hold-%d", s.acquired)
	hold.Status = models.HoldStatusActive
	if s.byKey == nil {
		s.byKey = make(map[string]*models.TentativeHold)
	}
	s.byKey[hold.IdempotencyKey] = hold
	return nil
}

func (s *stubHoldStore) FindByID(_ context.Context, id string) (*models.TentativeHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, hold := range s.byKey {
		if hold.ID == id {
			return hold, nil
		}
	}
	return nil, assert.AnError
}

func (s *stubHoldStore) FindByIdempotencyKey(_ context.Context, key string) (*models.TentativeHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKey[key], nil
}

func (s *stubHoldStore) ListActiveForSlot(_ context.Context, _ string, _ time.Time) ([]models.TentativeHold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var holds []models.TentativeHold
	for _, hold := range s.byKey {
		holds = append(holds, *hold)
	}
	return holds, nil
}

func (s *stubHoldStore) ReleaseActiveForSlot(_ context.Context, _, _ string, _ *string) (int64, error) {
	return s.released, nil
}

func (s *stubHoldStore) ExpireDue(_ context.Context, _ time.Time) (int64, error) {
	return s.expired, nil
}

type stubSlotReader struct {
	slot *models.Slot
	err  error
}

func (s *stubSlotReader) FindByID(_ context.Context, _ string) (*models.Slot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.slot, nil
}

type countingMetrics struct {
	mu                sync.Mutex
	holdsCreated      int
	holdsExpired      int64
	capacityConflicts int
	committed         int
	cancelled         int
}

func (m *countingMetrics) HoldCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdsCreated++
}

func (m *countingMetrics) HoldsExpired(count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holdsExpired += count
}

func (m *countingMetrics) CapacityConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capacityConflicts++
}

func (m *countingMetrics) BookingCommitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed++
}

func (m *countingMetrics) BookingCancelled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled++
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) DeleteByPattern(_ context.Context, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func holdTestConfig() config.HoldsConfig {
	return config.HoldsConfig{
		DefaultDuration: 10 * time.Minute,
		MaxDuration:     30 * time.Minute,
	}
}

func availableSlot() *models.Slot {
	return &models.Slot{
		ID:               "slot-1",
		HospitalID:       "hosp-1",
		ConsultationMode: models.ModeInPerson,
		MaxCapacity:      3,
		Status:           models.SlotStatusAvailable,
	}
}

func TestCreateHoldRequiresIdempotencyKey(t *testing.T) {
	svc := NewHoldService(&stubHoldStore{capacity: 1}, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	_, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "", models.RequestContext{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIdempotencyKey))
}

func TestCreateHoldDefaultsDurationAndExpiry(t *testing.T) {
	store := &stubHoldStore{capacity: 1}
	svc := NewHoldService(store, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	before := time.Now().UTC()
	hold, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1",
		models.RequestContext{HospitalID: "hosp-1", UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, models.ModeInPerson, hold.ConsultationMode)
	assert.Equal(t, "user-1", hold.HeldBy)
	assert.WithinDuration(t, before.Add(10*time.Minute), hold.ExpiresAt, 5*time.Second)
}

func TestCreateHoldRejectsDurationOverCeiling(t *testing.T) {
	svc := NewHoldService(&stubHoldStore{capacity: 1}, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	_, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient), HoldDurationMinutes: 45}, "key-1", models.RequestContext{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestCreateHoldReplaysIdempotencyKey(t *testing.T) {
	store := &stubHoldStore{capacity: 1}
	svc := NewHoldService(store, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	first, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.NoError(t, err)

	// The retried request returns the original hold even though capacity is
	// long gone.
	second, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.acquired)
}

func TestCreateHoldBlockedSlot(t *testing.T) {
	slot := availableSlot()
	slot.Status = models.SlotStatusBlocked
	svc := NewHoldService(&stubHoldStore{capacity: 1}, &stubSlotReader{slot: slot}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	_, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSlotBlocked))
}

func TestCreateHoldModeRequiredForDualModeSlot(t *testing.T) {
	slot := availableSlot()
	slot.ConsultationMode = models.ModeBoth
	slot.MaxInPersonCapacity = 2
	slot.MaxTeleCapacity = 1
	svc := NewHoldService(&stubHoldStore{capacity: 3}, &stubSlotReader{slot: slot}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	_, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	hold, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient), ConsultationMode: string(models.ModeTele)}, "key-2", models.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, models.ModeTele, hold.ConsultationMode)
}

func TestCreateHoldModeMismatchOnSingleModeSlot(t *testing.T) {
	svc := NewHoldService(&stubHoldStore{capacity: 1}, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	_, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient), ConsultationMode: string(models.ModeTele)}, "key-1", models.RequestContext{})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestConcurrentHoldsNeverExceedCapacity(t *testing.T) {
	const workers = 20
	const capacity = 3

	store := &stubHoldStore{capacity: capacity}
	metrics := &countingMetrics{}
	svc := NewHoldService(store, &stubSlotReader{slot: availableSlot()}, &countingInvalidator{}, metrics, holdTestConfig(), nil, zap.NewNop())

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.CreateHold(context.Background(), "slot-1",
				dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)},
				fmt.Sprintf("key-%d", n), models.RequestContext{UserID: fmt.Sprintf("user-%d", n)})
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.True(t, appErrors.HasCode(err, appErrors.ErrCapacityExceeded))
		conflicted++
	}
	assert.Equal(t, capacity, succeeded)
	assert.Equal(t, workers-capacity, conflicted)
	assert.Equal(t, capacity, metrics.holdsCreated)
	assert.Equal(t, workers-capacity, metrics.capacityConflicts)
}

func TestCreateHoldResolvesRaceWithOwnRetry(t *testing.T) {
	winner := &models.TentativeHold{ID: "hold-9", IdempotencyKey: "key-1", Status: models.HoldStatusActive}
	store := &conflictThenFindStore{winner: winner}
	svc := NewHoldService(store, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	hold, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.NoError(t, err)
	assert.Equal(t, "hold-9", hold.ID)
	assert.Equal(t, 2, store.lookups)
}

// conflictThenFindStore misses the first idempotency lookup, fails the insert
// with a conflict, then serves the winning row, mimicking two racing retries.
type conflictThenFindStore struct {
	stubHoldStore
	winner  *models.TentativeHold
	lookups int
}

func (s *conflictThenFindStore) FindByIdempotencyKey(_ context.Context, _ string) (*models.TentativeHold, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func (s *conflictThenFindStore) Acquire(_ context.Context, _ *models.TentativeHold) error {
	return appErrors.Clone(appErrors.ErrConflict, "duplicate idempotency key")
}

func TestReleaseHoldIsNoOpWithoutActiveHolds(t *testing.T) {
	invalidator := &countingInvalidator{}
	svc := NewHoldService(&stubHoldStore{}, &stubSlotReader{slot: availableSlot()}, invalidator, nil, holdTestConfig(), nil, zap.NewNop())

	err := svc.ReleaseHold(context.Background(), "slot-1", dto.ReleaseHoldRequest{}, models.RequestContext{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 0, invalidator.calls)
}

func TestGetHoldUnknownIDIsNotFound(t *testing.T) {
	store := &stubHoldStore{capacity: 1}
	svc := NewHoldService(store, &stubSlotReader{slot: availableSlot()}, nil, nil, holdTestConfig(), nil, zap.NewNop())

	created, err := svc.CreateHold(context.Background(), "slot-1",
		dto.CreateHoldRequest{HoldType: string(models.HoldTypePatient)}, "key-1", models.RequestContext{})
	require.NoError(t, err)

	found, err := svc.GetHold(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = svc.GetHold(context.Background(), "hold-missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestReleaseHoldInvalidatesCacheWhenSomethingReleased(t *testing.T) {
	invalidator := &countingInvalidator{}
	svc := NewHoldService(&stubHoldStore{released: 2}, &stubSlotReader{slot: availableSlot()}, invalidator, nil, holdTestConfig(), nil, zap.NewNop())

	err := svc.ReleaseHold(context.Background(), "slot-1", dto.ReleaseHoldRequest{}, models.RequestContext{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, invalidator.calls)
}
