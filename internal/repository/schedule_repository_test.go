package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var baseScheduleTestColumns = []string{
	"id", "hospital_id", "doctor_profile_id", "location_id", "day_of_week", "start_time", "end_time",
	"slot_duration_minutes", "buffer_time_minutes", "max_appointments_per_slot", "consultation_mode",
	"max_in_person_capacity", "max_tele_capacity", "effective_from", "effective_until", "is_active",
	"created_by", "created_at", "updated_at",
}

func baseScheduleRows() *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(baseScheduleTestColumns).
		AddRow("bs-1", "hosp-1", "doc-1", "loc-1", 1, "09:00", "12:00",
			30, 0, 2, "in_person",
			0, 0, now, nil, true,
			"admin-1", now, now)
}

func TestScheduleRepositoryCreateBaseScheduleAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO base_schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := &models.BaseSchedule{
		HospitalID:      "hosp-1",
		DoctorProfileID: "doc-1",
		LocationID:      "loc-1",
		StartTime:       "09:00",
		EndTime:         "12:00",
	}
	require.NoError(t, repo.CreateBaseSchedule(context.Background(), schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.False(t, schedule.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListBaseSchedulesAppliesFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`FROM base_schedules WHERE 1=1 AND hospital_id = \$1 AND doctor_profile_id = \$2 AND is_active = TRUE ORDER BY day_of_week ASC, start_time ASC`).
		WithArgs("hosp-1", "doc-1").
		WillReturnRows(baseScheduleRows())

	schedules, err := repo.ListBaseSchedules(context.Background(), models.BaseScheduleFilter{
		HospitalID:      "hosp-1",
		DoctorProfileID: "doc-1",
		ActiveOnly:      true,
	})
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "bs-1", schedules[0].ID)
	assert.Equal(t, 1, schedules[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindOverlapping(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(`FROM base_schedules\s+WHERE doctor_profile_id = \$1 AND location_id = \$2 AND day_of_week = \$3 AND is_active = TRUE`).
		WillReturnRows(baseScheduleRows())

	candidate := &models.BaseSchedule{
		DoctorProfileID: "doc-1",
		LocationID:      "loc-1",
		DayOfWeek:       1,
		StartTime:       "10:00",
		EndTime:         "13:00",
		EffectiveFrom:   time.Now().UTC(),
	}
	overlapping, err := repo.FindOverlapping(context.Background(), candidate)
	require.NoError(t, err)
	assert.Len(t, overlapping, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryDeactivateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("UPDATE base_schedules SET is_active = FALSE").
		WithArgs("bs-missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.DeactivateBaseSchedule(context.Background(), "bs-missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateOverride(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec("INSERT INTO schedule_overrides").
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.ScheduleOverride{
		HospitalID:      "hosp-1",
		DoctorProfileID: "doc-1",
		LocationID:      "loc-1",
		OverrideDate:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateOverride(context.Background(), override))
	assert.NotEmpty(t, override.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListForcedBlocksIntersectingRange(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	rows := sqlmock.NewRows([]string{"id", "hospital_id", "doctor_profile_id", "start_datetime", "end_datetime", "reason", "notes", "created_by", "created_at"}).
		AddRow("fb-1", "hosp-1", "doc-1", start.Add(10*time.Hour), start.Add(12*time.Hour), "conference", nil, "admin-1", time.Now())
	mock.ExpectQuery(`FROM forced_blocks WHERE doctor_profile_id = \$1 AND start_datetime < \$3 AND end_datetime > \$2`).
		WithArgs("doc-1", start, end).
		WillReturnRows(rows)

	blocks, err := repo.ListForcedBlocks(context.Background(), "doc-1", start, end)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "conference", blocks[0].Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindDoctorProfile(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "hospital_id", "full_name", "specialty", "is_active", "created_at"}).
		AddRow("doc-1", "hosp-1", "Dr. Dewi Lestari", "cardiology", true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, hospital_id, full_name, specialty, is_active, created_at FROM doctor_profiles WHERE id = $1")).
		WithArgs("doc-1").
		WillReturnRows(rows)

	doctor, err := repo.FindDoctorProfile(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Dewi Lestari", doctor.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
