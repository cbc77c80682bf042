package handler

import (
	"bytes"
	"encoding/json"
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
	"github.com/medhaven/clinic-scheduling-api/pkg/config"
)

func buildAPIRouter(store *bookingStoreMock) *gin.Engine {
	gin.SetMode(gin.TestMode)

	scheduleSvc := service.NewScheduleService(nil, nil, nil, nil, nil, config.SlotsConfig{HorizonDays: 60}, nil, zap.NewNop())
	exportSvc := service.NewExportService(nil, nil, nil, nil, zap.NewNop())
	holdSvc := service.NewHoldService(nil, nil, nil, nil, config.HoldsConfig{}, nil, zap.NewNop())
	availabilitySvc := service.NewAvailabilityService(nil, nil, nil, time.Minute, zap.NewNop())
	bookingSvc := service.NewBookingService(store, nil, nil, nil, zap.NewNop())

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
		c.Set(middleware.ContextTenantKey, models.RequestContext{HospitalID: "hosp-1", UserID: "user-1"})
	})

	Routes{
		Schedules:      NewScheduleHandler(scheduleSvc, exportSvc),
		Slots:          NewSlotHandler(availabilitySvc, holdSvc, scheduleSvc),
		Commands:       NewCommandHandler(bookingSvc),
		ExportsEnabled: true,
	}.Mount(api)
	return router
}

func performAPIRequest(t *testing.T, router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(method, path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterMutationsRequireIdempotencyHeader(t *testing.T) {
	router := buildAPIRouter(&bookingStoreMock{})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/doctor-schedules"},
		{http.MethodPost, "/api/v1/doctor-schedules/overrides"},
		{http.MethodPost, "/api/v1/doctor-schedules/forced-blocks"},
		{http.MethodPost, "/api/v1/appointment-slots/slot-1/hold"},
		{http.MethodDelete, "/api/v1/appointment-slots/slot-1/hold"},
		{http.MethodPost, "/api/v1/appointment-slots/slot-1/block"},
	}
	for _, r := range routes {
		w := performAPIRequest(t, router, r.method, r.path, []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code, "%s %s", r.method, r.path)
		assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_REQUIRED", "%s %s", r.method, r.path)
	}
}

func TestRouterCommandsCarryKeyInBody(t *testing.T) {
	store := &bookingStoreMock{}
	router := buildAPIRouter(store)

	// No Idempotency-Key header: the body-level pair is the contract here.
	w := performAPIRequest(t, router, http.MethodPost, "/api/v1/commands/schedule-appointment", scheduleCommandBody(t))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.commits)
	assert.Contains(t, w.Body.String(), "appt-1")
}

func TestRouterCommandsRejectMissingBodyKey(t *testing.T) {
	router := buildAPIRouter(&bookingStoreMock{})

	payload, err := json.Marshal(dto.ScheduleAppointmentPayload{HoldID: "hold-1", PatientID: "patient-1"})
	require.NoError(t, err)
	body, err := json.Marshal(dto.Command{CommandID: "cmd-1", Payload: payload})
	require.NoError(t, err)

	w := performAPIRequest(t, router, http.MethodPost, "/api/v1/commands/schedule-appointment", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "IDEMPOTENCY_KEY_REQUIRED")
}
