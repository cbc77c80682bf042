package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

type stubExportSlots struct {
	slots []models.Slot
	err   error
}

func (s *stubExportSlots) ListByDoctorRange(_ context.Context, _ string, _, _ time.Time) ([]models.Slot, error) {
	return s.slots, s.err
}

type stubExportDoctors struct {
	err error
}

func (s *stubExportDoctors) FindDoctorProfile(_ context.Context, id string) (*models.DoctorProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.DoctorProfile{ID: id, FullName: "Dr. Dewi Lestari"}, nil
}

func exportWindow() (time.Time, time.Time) {
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 6)
}

func TestExportScheduleRendersCSV(t *testing.T) {
	slots := &stubExportSlots{slots: []models.Slot{
		{
			SlotDate:         time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
			StartTime:        "09:00",
			EndTime:          "09:30",
			LocationID:       "loc-1",
			ConsultationMode: models.ModeInPerson,
			Status:           models.SlotStatusAvailable,
			MaxCapacity:      2,
			CurrentBookings:  1,
		},
	}}
	svc := NewExportService(slots, &stubExportDoctors{}, nil, nil, zap.NewNop())

	start, end := exportWindow()
	result, err := svc.ExportSchedule(context.Background(), "doc-1", start, end, ExportFormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "schedule_doc-1_20260907.csv", result.Filename)
	body := string(result.Payload)
	assert.True(t, strings.HasPrefix(body, "Date,Start,End,Location,Mode,Status,Capacity,Booked"))
	assert.Contains(t, body, "2026-09-07,09:00,09:30,loc-1,in_person,available,2,1")
}

func TestExportScheduleRendersPDF(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportDoctors{}, nil, nil, zap.NewNop())

	start, end := exportWindow()
	result, err := svc.ExportSchedule(context.Background(), "doc-1", start, end, ExportFormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportScheduleRejectsInvertedRange(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportDoctors{}, nil, nil, zap.NewNop())

	start, end := exportWindow()
	_, err := svc.ExportSchedule(context.Background(), "doc-1", end, start, ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestExportScheduleUnknownDoctor(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportDoctors{err: assert.AnError}, nil, nil, zap.NewNop())

	start, end := exportWindow()
	_, err := svc.ExportSchedule(context.Background(), "doc-404", start, end, ExportFormatCSV)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestExportScheduleUnknownFormat(t *testing.T) {
	svc := NewExportService(&stubExportSlots{}, &stubExportDoctors{}, nil, nil, zap.NewNop())

	start, end := exportWindow()
	_, err := svc.ExportSchedule(context.Background(), "doc-1", start, end, ScheduleExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
