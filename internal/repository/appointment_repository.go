package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

// AppointmentRepository owns the booking commit and cancel transactions plus
// the command log backing their idempotency.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = `id, hospital_id, slot_id, hold_id, doctor_profile_id, location_id, patient_id,
consultation_mode, slot_date, start_time, end_time, status, notes, booked_by, cancelled_at, created_at, updated_at`

// FindByID loads an appointment by id.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindCommand returns the recorded outcome for an idempotency key, if any.
func (r *AppointmentRepository) FindCommand(ctx context.Context, idempotencyKey string) (*models.CommandRecord, error) {
	const query = `SELECT command_id, idempotency_key, command_type, aggregate_id, result, created_at
FROM command_log WHERE idempotency_key = $1`
	var record models.CommandRecord
	if err := r.db.GetContext(ctx, &record, query, idempotencyKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find command record: %w", err)
	}
	return &record, nil
}

// CommitBooking converts an active unexpired hold into a confirmed
// appointment. Counter increments, hold consumption, the appointment row and
// the command record land in one transaction; any validation failure leaves
// every row untouched.
func (r *AppointmentRepository) CommitBooking(ctx context.Context, appt *models.Appointment, record *models.CommandRecord) (err error) {
	pending, err := r.findHold(ctx, appt.HoldID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "hold not found")
		}
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Slot lock before hold lock, matching the acquire path's order.
	slot, err := slotForUpdate(ctx, tx, pending.SlotID)
	if err != nil {
		return fmt.Errorf("lock slot for booking: %w", err)
	}
	hold, err := holdForUpdate(ctx, tx, appt.HoldID)
	if err != nil {
		return fmt.Errorf("lock hold for booking: %w", err)
	}

	now := time.Now().UTC()
	switch {
	case hold.Status == models.HoldStatusConsumed:
		return appErrors.ErrHoldConsumed
	case hold.Status == models.HoldStatusReleased:
		return appErrors.Clone(appErrors.ErrConflict, "hold has been released")
	case hold.Status == models.HoldStatusExpired || !now.Before(hold.ExpiresAt):
		return appErrors.ErrHoldExpired
	}

	if slot.Status == models.SlotStatusBlocked {
		return appErrors.ErrSlotBlocked
	}

	mode := hold.ConsultationMode
	if slot.CurrentBookings >= slot.MaxCapacity || slot.ModeBookings(mode) >= slot.ModeCapacity(mode) {
		return appErrors.ErrCapacityExceeded
	}

	slot.CurrentBookings++
	if mode == models.ModeTele {
		slot.TeleBookings++
	} else {
		slot.InPersonBookings++
	}
	if err = updateSlotCounters(ctx, tx, slot); err != nil {
		return err
	}

	if err = markHoldConsumed(ctx, tx, hold.ID); err != nil {
		return err
	}

	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	appt.HospitalID = slot.HospitalID
	appt.SlotID = slot.ID
	appt.DoctorProfileID = slot.DoctorProfileID
	appt.LocationID = slot.LocationID
	appt.ConsultationMode = mode
	appt.SlotDate = slot.SlotDate
	appt.StartTime = slot.StartTime
	appt.EndTime = slot.EndTime
	appt.Status = models.AppointmentStatusConfirmed
	appt.CreatedAt = now
	appt.UpdatedAt = now

	const insertAppt = `INSERT INTO appointments (id, hospital_id, slot_id, hold_id, doctor_profile_id, location_id, patient_id,
consultation_mode, slot_date, start_time, end_time, status, notes, booked_by, cancelled_at, created_at, updated_at)
VALUES (:id, :hospital_id, :slot_id, :hold_id, :doctor_profile_id, :location_id, :patient_id,
:consultation_mode, :slot_date, :start_time, :end_time, :status, :notes, :booked_by, :cancelled_at, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insertAppt, appt); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	record.AggregateID = appt.ID
	if record.Result, err = json.Marshal(appt); err != nil {
		return fmt.Errorf("marshal booking result: %w", err)
	}
	if err = insertCommand(ctx, tx, record); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// CancelBooking marks an appointment cancelled and returns its capacity to
// the slot. Cancelling an already-cancelled appointment changes nothing.
func (r *AppointmentRepository) CancelBooking(ctx context.Context, appointmentID string, record *models.CommandRecord) (appt *models.Appointment, err error) {
	existing, err := r.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel booking: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	slot, err := slotForUpdate(ctx, tx, existing.SlotID)
	if err != nil {
		return nil, fmt.Errorf("lock slot for cancel: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE id = $1 FOR UPDATE`, appointmentColumns)
	var locked models.Appointment
	if err = sqlx.GetContext(ctx, tx, &locked, query, appointmentID); err != nil {
		return nil, fmt.Errorf("lock appointment: %w", err)
	}

	now := time.Now().UTC()
	if locked.Status != models.AppointmentStatusCancelled {
		slot.CurrentBookings--
		if locked.ConsultationMode == models.ModeTele {
			slot.TeleBookings--
		} else {
			slot.InPersonBookings--
		}
		if err = updateSlotCounters(ctx, tx, slot); err != nil {
			return nil, err
		}

		locked.Status = models.AppointmentStatusCancelled
		locked.CancelledAt = &now
		locked.UpdatedAt = now
		const update = `UPDATE appointments SET status = 'cancelled', cancelled_at = $2, updated_at = $2 WHERE id = $1`
		if _, err = tx.ExecContext(ctx, update, appointmentID, now); err != nil {
			return nil, fmt.Errorf("cancel appointment: %w", err)
		}
	}

	record.AggregateID = locked.ID
	if record.Result, err = json.Marshal(&locked); err != nil {
		return nil, fmt.Errorf("marshal cancel result: %w", err)
	}
	if err = insertCommand(ctx, tx, record); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel booking: %w", err)
	}
	return &locked, nil
}

func (r *AppointmentRepository) findHold(ctx context.Context, holdID string) (*models.TentativeHold, error) {
	query := fmt.Sprintf(`SELECT %s FROM tentative_holds WHERE id = $1`, holdColumns)
	var hold models.TentativeHold
	if err := r.db.GetContext(ctx, &hold, query, holdID); err != nil {
		return nil, err
	}
	return &hold, nil
}

func insertCommand(ctx context.Context, e sqlx.ExtContext, record *models.CommandRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO command_log (command_id, idempotency_key, command_type, aggregate_id, result, created_at)
VALUES (:command_id, :idempotency_key, :command_type, :aggregate_id, :result, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, e, query, record); err != nil {
		return fmt.Errorf("insert command record: %w", err)
	}
	return nil
}
