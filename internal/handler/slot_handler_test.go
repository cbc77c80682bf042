package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/middleware"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
	"github.com/medhaven/clinic-scheduling-api/internal/service"
)

type slotSearcherMock struct {
	views []dto.SlotView
}

func (m *slotSearcherMock) Search(_ context.Context, _ models.SlotFilter, _ time.Time) ([]dto.SlotView, error) {
	return m.views, nil
}

func (m *slotSearcherMock) FindByID(_ context.Context, id string) (*models.Slot, error) {
	return &models.Slot{ID: id, Status: models.SlotStatusAvailable, MaxCapacity: 2, ConsultationMode: models.ModeInPerson}, nil
}

type holdCounterMock struct{}

func (holdCounterMock) CountActiveForSlot(_ context.Context, _ string, _ time.Time) (int, int, int, error) {
	return 1, 1, 0, nil
}

func availabilityForTest(views []dto.SlotView) *service.AvailabilityService {
	return service.NewAvailabilityService(&slotSearcherMock{views: views}, holdCounterMock{}, nil, time.Minute, zap.NewNop())
}

func newSlotTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	c.Request = req
	c.Set(middleware.ContextTenantKey, models.RequestContext{HospitalID: "hosp-1", UserID: "user-1"})
	return c, w
}

func TestSlotHandlerAvailabilityDropsUnbookableSlots(t *testing.T) {
	open := dto.SlotView{}
	open.ID = "slot-open"
	open.Status = models.SlotStatusAvailable
	open.ConsultationMode = models.ModeInPerson
	open.MaxCapacity = 2

	blocked := dto.SlotView{}
	blocked.ID = "slot-blocked"
	blocked.Status = models.SlotStatusBlocked
	blocked.ConsultationMode = models.ModeInPerson
	blocked.MaxCapacity = 2

	handler := NewSlotHandler(availabilityForTest([]dto.SlotView{open, blocked}), nil, nil)

	c, w := newSlotTestContext(t, "/appointment-slots/availability?doctor_profile_id=doc-1")
	handler.Availability(c)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "slot-open")
	assert.NotContains(t, body, "slot-blocked")
}

func TestSlotHandlerAvailabilityRejectsBadDate(t *testing.T) {
	handler := NewSlotHandler(availabilityForTest(nil), nil, nil)

	c, w := newSlotTestContext(t, "/appointment-slots/availability?start_date=not-a-date")
	handler.Availability(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlotHandlerGetIncludesLiveHoldCounts(t *testing.T) {
	handler := NewSlotHandler(availabilityForTest(nil), nil, nil)

	c, w := newSlotTestContext(t, "/appointment-slots/slot-1")
	c.Params = gin.Params{{Key: "id", Value: "slot-1"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_holds":1`)
}
