package models

import "time"

// HoldType classifies who is reserving the slot.
type HoldType string

const (
	HoldTypePatient HoldType = "patient_booking"
	HoldTypeAdmin   HoldType = "admin_booking"
	HoldTypeSystem  HoldType = "system_reservation"
)

// Valid reports whether the hold type is known.
func (t HoldType) Valid() bool {
	switch t {
	case HoldTypePatient, HoldTypeAdmin, HoldTypeSystem:
		return true
	}
	return false
}

// HoldStatus is the stored lifecycle state of a hold. Capacity computations
// must never trust it alone: a hold is inactive once expires_at passes, even
// before the sweep flips the stored status.
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
	HoldStatusConsumed HoldStatus = "consumed"
)

// TentativeHold is a time-boxed reservation on a slot preceding a booking.
type TentativeHold struct {
	ID               string           `db:"id" json:"id"`
	SlotID           string           `db:"slot_id" json:"slot_id"`
	HospitalID       string           `db:"hospital_id" json:"hospital_id"`
	PatientID        *string          `db:"patient_id" json:"patient_id,omitempty"`
	HoldType         HoldType         `db:"hold_type" json:"hold_type"`
	ConsultationMode ConsultationMode `db:"consultation_mode" json:"consultation_mode"`
	HeldBy           string           `db:"held_by" json:"held_by"`
	IdempotencyKey   string           `db:"idempotency_key" json:"-"`
	ExpiresAt        time.Time        `db:"expires_at" json:"expires_at"`
	Status           HoldStatus       `db:"status" json:"status"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the hold still counts toward capacity at the given
// instant. expires_at is the source of truth, not the swept status.
func (h *TentativeHold) ActiveAt(now time.Time) bool {
	return h.Status == HoldStatusActive && now.Before(h.ExpiresAt)
}
