package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
	appErrors "github.com/medhaven/clinic-scheduling-api/pkg/errors"
)

// HoldRepository persists tentative holds and owns the capacity gate.
type HoldRepository struct {
	db *sqlx.DB
}

// NewHoldRepository creates a new hold repository.
func NewHoldRepository(db *sqlx.DB) *HoldRepository {
	return &HoldRepository{db: db}
}

const holdColumns = `id, slot_id, hospital_id, patient_id, hold_type, consultation_mode, held_by, idempotency_key,
expires_at, status, notes, created_at, updated_at`

// holdUsage aggregates active unexpired holds against a slot.
type holdUsage struct {
	Total    int `db:"total"`
	InPerson int `db:"in_person"`
	Tele     int `db:"tele"`
}

// Acquire inserts a hold if the slot still has room for the requested mode.
// The slot row lock serializes concurrent attempts; capacity is re-read under
// the lock, counting holds by expires_at rather than swept status.
func (r *HoldRepository) Acquire(ctx context.Context, hold *models.TentativeHold) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin acquire hold: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	slot, err := slotForUpdate(ctx, tx, hold.SlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return fmt.Errorf("lock slot for hold: %w", err)
	}

	if slot.Status == models.SlotStatusBlocked {
		return appErrors.ErrSlotBlocked
	}

	now := time.Now().UTC()
	usage, err := activeHoldUsage(ctx, tx, hold.SlotID, now)
	if err != nil {
		return err
	}

	mode := hold.ConsultationMode
	modeHolds := usage.InPerson
	if mode == models.ModeTele {
		modeHolds = usage.Tele
	}
	if slot.Remaining(mode, modeHolds, usage.Total) <= 0 {
		return appErrors.ErrCapacityExceeded
	}

	if hold.ID == "" {
		hold.ID = uuid.NewString()
	}
	hold.Status = models.HoldStatusActive
	hold.CreatedAt = now
	hold.UpdatedAt = now

	const query = `INSERT INTO tentative_holds (id, slot_id, hospital_id, patient_id, hold_type, consultation_mode, held_by, idempotency_key,
expires_at, status, notes, created_at, updated_at)
VALUES (:id, :slot_id, :hospital_id, :patient_id, :hold_type, :consultation_mode, :held_by, :idempotency_key,
:expires_at, :status, :notes, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, query, hold); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// A retry raced us on the idempotency key; the caller re-reads.
			return appErrors.Clone(appErrors.ErrConflict, "duplicate idempotency key")
		}
		return fmt.Errorf("insert tentative hold: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit acquire hold: %w", err)
	}
	return nil
}

// FindByID loads a hold by id.
func (r *HoldRepository) FindByID(ctx context.Context, id string) (*models.TentativeHold, error) {
	query := fmt.Sprintf(`SELECT %s FROM tentative_holds WHERE id = $1`, holdColumns)
	var hold models.TentativeHold
	if err := r.db.GetContext(ctx, &hold, query, id); err != nil {
		return nil, err
	}
	return &hold, nil
}

// FindByIdempotencyKey returns the hold previously created with the key, if any.
func (r *HoldRepository) FindByIdempotencyKey(ctx context.Context, key string) (*models.TentativeHold, error) {
	query := fmt.Sprintf(`SELECT %s FROM tentative_holds WHERE idempotency_key = $1`, holdColumns)
	var hold models.TentativeHold
	if err := r.db.GetContext(ctx, &hold, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find hold by idempotency key: %w", err)
	}
	return &hold, nil
}

// ListActiveForSlot returns unexpired active holds on a slot.
func (r *HoldRepository) ListActiveForSlot(ctx context.Context, slotID string, now time.Time) ([]models.TentativeHold, error) {
	query := fmt.Sprintf(`SELECT %s FROM tentative_holds
WHERE slot_id = $1 AND status = 'active' AND expires_at > $2
ORDER BY created_at ASC`, holdColumns)
	var holds []models.TentativeHold
	if err := r.db.SelectContext(ctx, &holds, query, slotID, now); err != nil {
		return nil, fmt.Errorf("list active holds: %w", err)
	}
	return holds, nil
}

// CountActiveForSlot reports active unexpired hold counts for a slot.
func (r *HoldRepository) CountActiveForSlot(ctx context.Context, slotID string, now time.Time) (total, inPerson, tele int, err error) {
	usage, err := activeHoldUsage(ctx, r.db, slotID, now)
	if err != nil {
		return 0, 0, 0, err
	}
	return usage.Total, usage.InPerson, usage.Tele, nil
}

// ReleaseActiveForSlot releases the caller's active holds on a slot. Releasing
// when nothing is active is a no-op, not an error.
func (r *HoldRepository) ReleaseActiveForSlot(ctx context.Context, slotID, heldBy string, notes *string) (int64, error) {
	const query = `UPDATE tentative_holds
SET status = 'released', notes = COALESCE($3, notes), updated_at = $4
WHERE slot_id = $1 AND held_by = $2 AND status = 'active'`
	res, err := r.db.ExecContext(ctx, query, slotID, heldBy, notes, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("release holds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("release holds: %w", err)
	}
	return n, nil
}

// ExpireDue flips holds past their expiry to expired and reports how many.
// Races with booking and release are harmless: those paths re-check
// expires_at themselves instead of trusting the swept status.
func (r *HoldRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE tentative_holds SET status = 'expired', updated_at = $1
WHERE status = 'active' AND expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("expire due holds: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expire due holds: %w", err)
	}
	return n, nil
}

// activeHoldUsage counts active unexpired holds on a slot, split by mode.
func activeHoldUsage(ctx context.Context, q sqlx.QueryerContext, slotID string, now time.Time) (holdUsage, error) {
	const query = `SELECT COUNT(*) AS total,
       COUNT(*) FILTER (WHERE consultation_mode = 'in_person') AS in_person,
       COUNT(*) FILTER (WHERE consultation_mode = 'tele_consultation') AS tele
FROM tentative_holds
WHERE slot_id = $1 AND status = 'active' AND expires_at > $2`
	var usage holdUsage
	if err := sqlx.GetContext(ctx, q, &usage, query, slotID, now); err != nil {
		return usage, fmt.Errorf("count active holds: %w", err)
	}
	return usage, nil
}

// holdForUpdate locks a hold row inside a transaction. Callers must already
// hold the slot lock to keep the lock order consistent.
func holdForUpdate(ctx context.Context, q sqlx.QueryerContext, holdID string) (*models.TentativeHold, error) {
	query := fmt.Sprintf(`SELECT %s FROM tentative_holds WHERE id = $1 FOR UPDATE`, holdColumns)
	var hold models.TentativeHold
	if err := sqlx.GetContext(ctx, q, &hold, query, holdID); err != nil {
		return nil, err
	}
	return &hold, nil
}

// markHoldConsumed transitions a hold to its terminal consumed state.
func markHoldConsumed(ctx context.Context, e sqlx.ExecerContext, holdID string) error {
	const query = `UPDATE tentative_holds SET status = 'consumed', updated_at = $2 WHERE id = $1`
	if _, err := e.ExecContext(ctx, query, holdID, time.Now().UTC()); err != nil {
		return fmt.Errorf("consume hold: %w", err)
	}
	return nil
}
