package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

func holdRow(id, slotID string, status models.HoldStatus, expiresAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(holdTestColumns).
		AddRow(id, slotID, "hosp-1", nil, "patient_booking", "in_person", "user-1", "key-1",
			expiresAt, string(status), nil, now, now)
}

var appointmentTestColumns = []string{
	"id", "hospital_id", "slot_id", "hold_id", "doctor_profile_id", "location_id", "patient_id",
	"consultation_mode", "slot_date", "start_time", "end_time", "status", "notes", "booked_by", "cancelled_at",
	"created_at", "updated_at",
}

func appointmentRow(id string, status models.AppointmentStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(appointmentTestColumns).
		AddRow(id, "hosp-1", "slot-1", "hold-1", "doc-1", "loc-1", "patient-1",
			"in_person", now.Truncate(24*time.Hour), "09:00", "09:30", string(status), nil, "user-1", nil,
			now, now)
}

func TestAppointmentRepositoryFindCommandMissingReturnsNil(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(`FROM command_log WHERE idempotency_key = \$1`).
		WithArgs("key-unknown").
		WillReturnError(sql.ErrNoRows)

	record, err := repo.FindCommand(context.Background(), "key-unknown")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCommitBookingTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	expiresAt := time.Now().UTC().Add(5 * time.Minute)
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusActive, expiresAt))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM appointment_slots WHERE id = \$1 FOR UPDATE`).
		WithArgs("slot-1").
		WillReturnRows(slotRows("slot-1", models.SlotStatusAvailable))
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1 FOR UPDATE`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusActive, expiresAt))
	mock.ExpectExec(`UPDATE appointment_slots\s+SET current_bookings = \$2`).
		WithArgs("slot-1", 1, 1, 0, "available", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE tentative_holds SET status = 'consumed'`).
		WithArgs("hold-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO command_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	appt := &models.Appointment{HoldID: "hold-1", PatientID: "patient-1", BookedBy: "user-1"}
	record := &models.CommandRecord{CommandID: "cmd-1", IdempotencyKey: "key-1", CommandType: "schedule_appointment"}
	require.NoError(t, repo.CommitBooking(context.Background(), appt, record))

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, "slot-1", appt.SlotID)
	assert.Equal(t, models.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, appt.ID, record.AggregateID)
	assert.NotEmpty(t, record.Result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCommitBookingExpiredHoldRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	expired := time.Now().UTC().Add(-time.Minute)
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusActive, expired))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM appointment_slots WHERE id = \$1 FOR UPDATE`).
		WithArgs("slot-1").
		WillReturnRows(slotRows("slot-1", models.SlotStatusAvailable))
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1 FOR UPDATE`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusActive, expired))
	mock.ExpectRollback()

	record := &models.CommandRecord{CommandID: "cmd-1", IdempotencyKey: "key-1", CommandType: "schedule_appointment"}
	err := repo.CommitBooking(context.Background(), &models.Appointment{HoldID: "hold-1"}, record)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrHoldExpired))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCommitBookingConsumedHold(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	expiresAt := time.Now().UTC().Add(5 * time.Minute)
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusConsumed, expiresAt))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM appointment_slots WHERE id = \$1 FOR UPDATE`).
		WithArgs("slot-1").
		WillReturnRows(slotRows("slot-1", models.SlotStatusAvailable))
	mock.ExpectQuery(`FROM tentative_holds WHERE id = \$1 FOR UPDATE`).
		WithArgs("hold-1").
		WillReturnRows(holdRow("hold-1", "slot-1", models.HoldStatusConsumed, expiresAt))
	mock.ExpectRollback()

	record := &models.CommandRecord{CommandID: "cmd-1", IdempotencyKey: "key-2", CommandType: "schedule_appointment"}
	err := repo.CommitBooking(context.Background(), &models.Appointment{HoldID: "hold-1"}, record)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrHoldConsumed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelBookingFreesCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(`FROM appointments WHERE id = \$1`).
		WithArgs("appt-1").
		WillReturnRows(appointmentRow("appt-1", models.AppointmentStatusConfirmed))

	mock.ExpectBegin()
	booked := time.Now().UTC()
	slot := sqlmock.NewRows(slotTestColumns).
		AddRow("slot-1", "hosp-1", "doc-1", "loc-1", "base_schedule", booked.Truncate(24*time.Hour), "09:00", "09:30",
			30, "in_person", 2, 0, 0,
			1, 1, 0, "available", nil, nil, nil,
			booked, booked)
	mock.ExpectQuery(`FROM appointment_slots WHERE id = \$1 FOR UPDATE`).
		WithArgs("slot-1").
		WillReturnRows(slot)
	mock.ExpectQuery(`FROM appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs("appt-1").
		WillReturnRows(appointmentRow("appt-1", models.AppointmentStatusConfirmed))
	mock.ExpectExec(`UPDATE appointment_slots\s+SET current_bookings = \$2`).
		WithArgs("slot-1", 0, 0, 0, "available", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE appointments SET status = 'cancelled'`).
		WithArgs("appt-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO command_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record := &models.CommandRecord{CommandID: "cmd-2", IdempotencyKey: "key-cancel", CommandType: "cancel_appointment"}
	appt, err := repo.CancelBooking(context.Background(), "appt-1", record)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appt.Status)
	require.NotNil(t, appt.CancelledAt)
	assert.Equal(t, "appt-1", record.AggregateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelBookingAlreadyCancelled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(`FROM appointments WHERE id = \$1`).
		WithArgs("appt-1").
		WillReturnRows(appointmentRow("appt-1", models.AppointmentStatusCancelled))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM appointment_slots WHERE id = \$1 FOR UPDATE`).
		WithArgs("slot-1").
		WillReturnRows(slotRows("slot-1", models.SlotStatusAvailable))
	mock.ExpectQuery(`FROM appointments WHERE id = \$1 FOR UPDATE`).
		WithArgs("appt-1").
		WillReturnRows(appointmentRow("appt-1", models.AppointmentStatusCancelled))
	mock.ExpectExec("INSERT INTO command_log").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	record := &models.CommandRecord{CommandID: "cmd-3", IdempotencyKey: "key-cancel-2", CommandType: "cancel_appointment"}
	appt, err := repo.CancelBooking(context.Background(), "appt-1", record)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
