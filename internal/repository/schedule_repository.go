package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

// ScheduleRepository persists schedule definitions: base schedules, overrides
// and forced blocks.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const baseScheduleColumns = `id, hospital_id, doctor_profile_id, location_id, day_of_week, start_time, end_time,
slot_duration_minutes, buffer_time_minutes, max_appointments_per_slot, consultation_mode,
max_in_person_capacity, max_tele_capacity, effective_from, effective_until, is_active,
created_by, created_at, updated_at`

// CreateBaseSchedule stores a new weekly template.
func (r *ScheduleRepository) CreateBaseSchedule(ctx context.Context, schedule *models.BaseSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	const query = `INSERT INTO base_schedules (id, hospital_id, doctor_profile_id, location_id, day_of_week, start_time, end_time,
slot_duration_minutes, buffer_time_minutes, max_appointments_per_slot, consultation_mode,
max_in_person_capacity, max_tele_capacity, effective_from, effective_until, is_active, created_by, created_at, updated_at)
VALUES (:id, :hospital_id, :doctor_profile_id, :location_id, :day_of_week, :start_time, :end_time,
:slot_duration_minutes, :buffer_time_minutes, :max_appointments_per_slot, :consultation_mode,
:max_in_person_capacity, :max_tele_capacity, :effective_from, :effective_until, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create base schedule: %w", err)
	}
	return nil
}

// ListBaseSchedules returns templates with optional filtering.
func (r *ScheduleRepository) ListBaseSchedules(ctx context.Context, filter models.BaseScheduleFilter) ([]models.BaseSchedule, error) {
	base := fmt.Sprintf("SELECT %s FROM base_schedules WHERE 1=1", baseScheduleColumns)
	var conditions []string
	var args []interface{}

	if filter.HospitalID != "" {
		conditions = append(conditions, fmt.Sprintf("hospital_id = $%d", len(args)+1))
		args = append(args, filter.HospitalID)
	}
	if filter.DoctorProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("doctor_profile_id = $%d", len(args)+1))
		args = append(args, filter.DoctorProfileID)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.DayOfWeek != nil {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, *filter.DayOfWeek)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY day_of_week ASC, start_time ASC"

	var schedules []models.BaseSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, fmt.Errorf("list base schedules: %w", err)
	}
	return schedules, nil
}

// FindOverlapping returns active templates for the same doctor, location and
// weekday whose daily window and effective range both intersect the candidate.
func (r *ScheduleRepository) FindOverlapping(ctx context.Context, candidate *models.BaseSchedule) ([]models.BaseSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM base_schedules
WHERE doctor_profile_id = $1 AND location_id = $2 AND day_of_week = $3 AND is_active = TRUE
AND start_time < $4 AND end_time > $5
AND effective_from <= COALESCE($6, effective_from)
AND COALESCE(effective_until, $7) >= $7`, baseScheduleColumns)

	until := candidate.EffectiveUntil
	var schedules []models.BaseSchedule
	err := r.db.SelectContext(ctx, &schedules, query,
		candidate.DoctorProfileID,
		candidate.LocationID,
		candidate.DayOfWeek,
		candidate.EndTime,
		candidate.StartTime,
		until,
		candidate.EffectiveFrom,
	)
	if err != nil {
		return nil, fmt.Errorf("find overlapping base schedules: %w", err)
	}
	return schedules, nil
}

// FindBaseScheduleByID loads a template by id.
func (r *ScheduleRepository) FindBaseScheduleByID(ctx context.Context, id string) (*models.BaseSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM base_schedules WHERE id = $1`, baseScheduleColumns)
	var schedule models.BaseSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// DeactivateBaseSchedule soft-deactivates a template, preserving history.
func (r *ScheduleRepository) DeactivateBaseSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE base_schedules SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate base schedule: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateOverride stores a date-specific replacement of the base schedule.
func (r *ScheduleRepository) CreateOverride(ctx context.Context, override *models.ScheduleOverride) error {
	if override.ID == "" {
		override.ID = uuid.NewString()
	}
	if override.CreatedAt.IsZero() {
		override.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO schedule_overrides (id, hospital_id, doctor_profile_id, location_id, override_date, start_time, end_time,
slot_duration_minutes, buffer_time_minutes, max_appointments_per_slot, consultation_mode,
max_in_person_capacity, max_tele_capacity, reason, created_by, created_at)
VALUES (:id, :hospital_id, :doctor_profile_id, :location_id, :override_date, :start_time, :end_time,
:slot_duration_minutes, :buffer_time_minutes, :max_appointments_per_slot, :consultation_mode,
:max_in_person_capacity, :max_tele_capacity, :reason, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("create schedule override: %w", err)
	}
	return nil
}

// ListOverrides returns overrides for a doctor, optionally bounded by dates.
func (r *ScheduleRepository) ListOverrides(ctx context.Context, filter models.OverrideFilter) ([]models.ScheduleOverride, error) {
	base := `SELECT id, hospital_id, doctor_profile_id, location_id, override_date, start_time, end_time,
slot_duration_minutes, buffer_time_minutes, max_appointments_per_slot, consultation_mode,
max_in_person_capacity, max_tele_capacity, reason, created_by, created_at
FROM schedule_overrides WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.HospitalID != "" {
		conditions = append(conditions, fmt.Sprintf("hospital_id = $%d", len(args)+1))
		args = append(args, filter.HospitalID)
	}
	if filter.DoctorProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("doctor_profile_id = $%d", len(args)+1))
		args = append(args, filter.DoctorProfileID)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("override_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("override_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}

	query := base
	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY override_date ASC, start_time ASC"

	var overrides []models.ScheduleOverride
	if err := r.db.SelectContext(ctx, &overrides, query, args...); err != nil {
		return nil, fmt.Errorf("list schedule overrides: %w", err)
	}
	return overrides, nil
}

// CreateForcedBlock stores a hard unavailability interval.
func (r *ScheduleRepository) CreateForcedBlock(ctx context.Context, block *models.ForcedBlock) error {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO forced_blocks (id, hospital_id, doctor_profile_id, start_datetime, end_datetime, reason, notes, created_by, created_at)
VALUES (:id, :hospital_id, :doctor_profile_id, :start_datetime, :end_datetime, :reason, :notes, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, block); err != nil {
		return fmt.Errorf("create forced block: %w", err)
	}
	return nil
}

// ListForcedBlocks returns blocks for a doctor intersecting [start, end).
func (r *ScheduleRepository) ListForcedBlocks(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.ForcedBlock, error) {
	const query = `SELECT id, hospital_id, doctor_profile_id, start_datetime, end_datetime, reason, notes, created_by, created_at
FROM forced_blocks WHERE doctor_profile_id = $1 AND start_datetime < $3 AND end_datetime > $2
ORDER BY start_datetime ASC`
	var blocks []models.ForcedBlock
	if err := r.db.SelectContext(ctx, &blocks, query, doctorProfileID, start, end); err != nil {
		return nil, fmt.Errorf("list forced blocks: %w", err)
	}
	return blocks, nil
}

// FindDoctorProfile loads a doctor profile by id.
func (r *ScheduleRepository) FindDoctorProfile(ctx context.Context, id string) (*models.DoctorProfile, error) {
	const query = `SELECT id, hospital_id, full_name, specialty, is_active, created_at FROM doctor_profiles WHERE id = $1`
	var doctor models.DoctorProfile
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindLocation loads a location by id.
func (r *ScheduleRepository) FindLocation(ctx context.Context, id string) (*models.Location, error) {
	const query = `SELECT id, hospital_id, name, is_active, created_at FROM locations WHERE id = $1`
	var location models.Location
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		return nil, err
	}
	return &location, nil
}

// IsNotFound reports whether err is the driver's empty-result sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
