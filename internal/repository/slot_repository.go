package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhaven/clinic-scheduling-api/internal/dto"
	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

// SlotRepository persists generated appointment slots.
type SlotRepository struct {
	db *sqlx.DB
}

// NewSlotRepository creates a new slot repository.
func NewSlotRepository(db *sqlx.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, hospital_id, doctor_profile_id, location_id, schedule_source, slot_date, start_time, end_time,
duration_minutes, consultation_mode, max_capacity, max_in_person_capacity, max_tele_capacity,
current_bookings, in_person_bookings, tele_bookings, status, blocked_reason, blocked_by, blocked_at,
created_at, updated_at`

// UpsertGenerated writes generator output keyed by the slot's natural key.
// An existing row keeps its identity and booking counters; capacity is
// refreshed from the definition but never shrunk below committed bookings, and
// a manual block (blocked_by set) survives regeneration. The returned ids name
// the slots whose stored capacity stayed above the definition because of
// committed bookings, so callers can report the clamp.
func (r *SlotRepository) UpsertGenerated(ctx context.Context, slots []models.Slot) ([]string, error) {
	if len(slots) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()

	const query = `
INSERT INTO appointment_slots (id, hospital_id, doctor_profile_id, location_id, schedule_source, slot_date, start_time, end_time,
duration_minutes, consultation_mode, max_capacity, max_in_person_capacity, max_tele_capacity,
current_bookings, in_person_bookings, tele_bookings, status, blocked_reason, blocked_by, blocked_at, created_at, updated_at)
VALUES (:id, :hospital_id, :doctor_profile_id, :location_id, :schedule_source, :slot_date, :start_time, :end_time,
:duration_minutes, :consultation_mode, :max_capacity, :max_in_person_capacity, :max_tele_capacity,
:current_bookings, :in_person_bookings, :tele_bookings, :status, :blocked_reason, :blocked_by, :blocked_at, :created_at, :updated_at)
ON CONFLICT (doctor_profile_id, location_id, slot_date, start_time) DO UPDATE
SET schedule_source = EXCLUDED.schedule_source,
    end_time = EXCLUDED.end_time,
    duration_minutes = EXCLUDED.duration_minutes,
    consultation_mode = EXCLUDED.consultation_mode,
    max_capacity = GREATEST(EXCLUDED.max_capacity, appointment_slots.current_bookings),
    max_in_person_capacity = GREATEST(EXCLUDED.max_in_person_capacity, appointment_slots.in_person_bookings),
    max_tele_capacity = GREATEST(EXCLUDED.max_tele_capacity, appointment_slots.tele_bookings),
    status = CASE
        WHEN appointment_slots.blocked_by IS NOT NULL THEN appointment_slots.status
        WHEN EXCLUDED.status = 'blocked' THEN 'blocked'
        WHEN appointment_slots.current_bookings >= GREATEST(EXCLUDED.max_capacity, appointment_slots.current_bookings) THEN 'fully_booked'
        ELSE 'available'
    END,
    blocked_reason = CASE WHEN appointment_slots.blocked_by IS NOT NULL THEN appointment_slots.blocked_reason ELSE EXCLUDED.blocked_reason END,
    updated_at = EXCLUDED.updated_at
RETURNING id, max_capacity, max_in_person_capacity, max_tele_capacity`

	var clamped []string
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now

		stored, err := namedUpsertSlot(ctx, r.db, query, slot)
		if err != nil {
			return nil, err
		}
		if stored.MaxCapacity > slot.MaxCapacity ||
			stored.MaxInPersonCapacity > slot.MaxInPersonCapacity ||
			stored.MaxTeleCapacity > slot.MaxTeleCapacity {
			clamped = append(clamped, stored.ID)
		}
		slot.ID = stored.ID
		slot.MaxCapacity = stored.MaxCapacity
		slot.MaxInPersonCapacity = stored.MaxInPersonCapacity
		slot.MaxTeleCapacity = stored.MaxTeleCapacity
	}
	return clamped, nil
}

// storedSlotCapacity is the capacity state of a slot row after an upsert.
type storedSlotCapacity struct {
	ID                  string `db:"id"`
	MaxCapacity         int    `db:"max_capacity"`
	MaxInPersonCapacity int    `db:"max_in_person_capacity"`
	MaxTeleCapacity     int    `db:"max_tele_capacity"`
}

func namedUpsertSlot(ctx context.Context, db *sqlx.DB, query string, slot *models.Slot) (storedSlotCapacity, error) {
	var stored storedSlotCapacity
	rows, err := sqlx.NamedQueryContext(ctx, db, query, slot)
	if err != nil {
		return stored, fmt.Errorf("upsert appointment slot: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return stored, fmt.Errorf("upsert appointment slot: %w", err)
		}
		return stored, fmt.Errorf("upsert appointment slot: no row returned")
	}
	if err := rows.StructScan(&stored); err != nil {
		return stored, fmt.Errorf("scan upserted slot: %w", err)
	}
	return stored, nil
}

// FindByID loads a slot by id.
func (r *SlotRepository) FindByID(ctx context.Context, id string) (*models.Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointment_slots WHERE id = $1`, slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListByDoctorRange returns a doctor's slots inside [start, end], ordered.
func (r *SlotRepository) ListByDoctorRange(ctx context.Context, doctorProfileID string, start, end time.Time) ([]models.Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointment_slots
WHERE doctor_profile_id = $1 AND slot_date >= $2 AND slot_date <= $3
ORDER BY slot_date ASC, start_time ASC`, slotColumns)
	var slots []models.Slot
	if err := r.db.SelectContext(ctx, &slots, query, doctorProfileID, start, end); err != nil {
		return nil, fmt.Errorf("list slots by doctor range: %w", err)
	}
	return slots, nil
}

// Search returns slots with live hold counts joined in, honoring the filter.
// Results are ordered by slot_date, start_time, then doctor_profile_id.
func (r *SlotRepository) Search(ctx context.Context, filter models.SlotFilter, now time.Time) ([]dto.SlotView, error) {
	var conditions []string
	args := []interface{}{now}

	if filter.HospitalID != "" {
		conditions = append(conditions, fmt.Sprintf("s.hospital_id = $%d", len(args)+1))
		args = append(args, filter.HospitalID)
	}
	if filter.DoctorProfileID != "" {
		conditions = append(conditions, fmt.Sprintf("s.doctor_profile_id = $%d", len(args)+1))
		args = append(args, filter.DoctorProfileID)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("s.location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("d.specialty = $%d", len(args)+1))
		args = append(args, filter.Specialty)
	}
	if filter.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.slot_date >= $%d", len(args)+1))
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("s.slot_date <= $%d", len(args)+1))
		args = append(args, *filter.EndDate)
	}
	if filter.ConsultationMode != "" && filter.ConsultationMode != models.ModeBoth {
		conditions = append(conditions, fmt.Sprintf("s.consultation_mode IN ($%d, 'both')", len(args)+1))
		args = append(args, filter.ConsultationMode)
	}
	if !filter.IncludeClosed {
		conditions = append(conditions, "s.status != 'blocked'")
	}

	where := ""
	if len(conditions) > 0 {
		where = " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
SELECT %s,
       COALESCE(h.active_holds, 0) AS active_holds,
       COALESCE(h.in_person_holds, 0) AS in_person_holds,
       COALESCE(h.tele_holds, 0) AS tele_holds
FROM appointment_slots s
JOIN doctor_profiles d ON d.id = s.doctor_profile_id
LEFT JOIN (
    SELECT slot_id,
           COUNT(*) AS active_holds,
           COUNT(*) FILTER (WHERE consultation_mode = 'in_person') AS in_person_holds,
           COUNT(*) FILTER (WHERE consultation_mode = 'tele_consultation') AS tele_holds
    FROM tentative_holds
    WHERE status = 'active' AND expires_at > $1
    GROUP BY slot_id
) h ON h.slot_id = s.id
WHERE 1=1%s
ORDER BY s.slot_date ASC, s.start_time ASC, s.doctor_profile_id ASC`,
		prefixColumns(slotColumns, "s."), where)

	var views []dto.SlotView
	if err := r.db.SelectContext(ctx, &views, query, args...); err != nil {
		return nil, fmt.Errorf("search appointment slots: %w", err)
	}
	return views, nil
}

// Block marks a single slot blocked by an operator. Bookings and holds on the
// slot are left untouched; the slot just stops surfacing as bookable.
func (r *SlotRepository) Block(ctx context.Context, slotID, reason, blockedBy string) (*models.Slot, error) {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE appointment_slots
SET status = 'blocked', blocked_reason = $2, blocked_by = $3, blocked_at = $4, updated_at = $4
WHERE id = $1
RETURNING %s`, slotColumns)
	var slot models.Slot
	if err := r.db.GetContext(ctx, &slot, query, slotID, reason, blockedBy, now); err != nil {
		return nil, err
	}
	return &slot, nil
}

// prefixColumns qualifies each column of a comma-separated list with a table
// alias for use in joined queries.
func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// slotForUpdate locks a slot row for the duration of the transaction. All
// capacity-affecting transactions take this lock first, which serializes them
// per slot and fixes the lock order with the hold row.
func slotForUpdate(ctx context.Context, q sqlx.QueryerContext, slotID string) (*models.Slot, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointment_slots WHERE id = $1 FOR UPDATE`, slotColumns)
	var slot models.Slot
	if err := sqlx.GetContext(ctx, q, &slot, query, slotID); err != nil {
		return nil, err
	}
	return &slot, nil
}

// updateSlotCounters persists booking counters and recomputed status.
func updateSlotCounters(ctx context.Context, e sqlx.ExecerContext, slot *models.Slot) error {
	slot.Status = slot.ComputeStatus()
	slot.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointment_slots
SET current_bookings = $2, in_person_bookings = $3, tele_bookings = $4, status = $5, updated_at = $6
WHERE id = $1`
	if _, err := e.ExecContext(ctx, query,
		slot.ID, slot.CurrentBookings, slot.InPersonBookings, slot.TeleBookings, slot.Status, slot.UpdatedAt); err != nil {
		return fmt.Errorf("update slot counters: %w", err)
	}
	return nil
}
