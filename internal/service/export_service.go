package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
	"github.com/medhaven/clinic-scheduling-api/pkg/export"
)

// ScheduleExportFormat names a supported export rendering.
type ScheduleExportFormat string

const (
	ExportFormatCSV ScheduleExportFormat = "csv"
	ExportFormatPDF ScheduleExportFormat = "pdf"
)

// ScheduleExport is a rendered doctor schedule ready to stream to the caller.
type ScheduleExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

type exportSlotLister interface {
	ListByDoctorRange(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.Slot, error)
}

type exportDoctorReader interface {
	FindDoctorProfile(ctx context.Context, id string) (*models.DoctorProfile, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a doctor's generated slots over a date range as CSV
// or PDF for front-desk printouts.
type ExportService struct {
	slots   exportSlotLister
	doctors exportDoctorReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(slots exportSlotLister, doctors exportDoctorReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		slots:   slots,
		doctors: doctors,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
	}
}

// ExportSchedule renders the doctor's slots between start and end inclusive.
func (s *ExportService) ExportSchedule(ctx context.Context, doctorProfileID string, start, end time.Time, format ScheduleExportFormat) (*ScheduleExport, error) {
	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	doctor, err := s.doctors.FindDoctorProfile(ctx, doctorProfileID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "doctor profile not found")
	}

	slots, err := s.slots.ListByDoctorRange(ctx, doctorProfileID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slots")
	}

	dataset := buildScheduleDataset(slots)
	title := fmt.Sprintf("Schedule for %s (%s to %s)", doctor.FullName, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var payload []byte
	var contentType, ext string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType, ext = "text/csv", "csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType, ext = "application/pdf", "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("schedule exported",
		zap.String("doctor_profile_id", doctorProfileID),
		zap.String("format", string(format)),
		zap.Int("slots", len(slots)),
	)

	return &ScheduleExport{
		Filename:    fmt.Sprintf("schedule_%s_%s.%s", doctorProfileID, start.Format("20060102"), ext),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func buildScheduleDataset(slots []models.Slot) export.Dataset {
	headers := []string{"Date", "Start", "End", "Location", "Mode", "Status", "Capacity", "Booked"}
	rows := make([]map[string]string, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, map[string]string{
			"Date":     slot.SlotDate.Format("2006-01-02"),
			"Start":    slot.StartTime,
			"End":      slot.EndTime,
			"Location": slot.LocationID,
			"Mode":     string(slot.ConsultationMode),
			"Status":   string(slot.Status),
			"Capacity": strconv.Itoa(slot.MaxCapacity),
			"Booked":   strconv.Itoa(slot.CurrentBookings),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
