package dto

import (
	"time"

	"github.com/medhaven/clinic-scheduling-api/internal/models"
)

// AvailabilityQuery captures the search parameters for bookable slots.
type AvailabilityQuery struct {
	DoctorProfileID  string `form:"doctor_profile_id"`
	LocationID       string `form:"location_id"`
	Specialty        string `form:"specialty"`
	StartDate        string `form:"start_date"`
	EndDate          string `form:"end_date"`
	ConsultationMode string `form:"consultation_mode"`
}

// SlotView is a slot enriched with the live remaining-capacity figures the
// booking UI renders.
type SlotView struct {
	models.Slot
	ActiveHolds       int `db:"active_holds" json:"active_holds"`
	InPersonHolds     int `db:"in_person_holds" json:"in_person_holds"`
	TeleHolds         int `db:"tele_holds" json:"tele_holds"`
	RemainingTotal    int `json:"remaining_total"`
	RemainingInPerson int `json:"remaining_in_person"`
	RemainingTele     int `json:"remaining_tele"`
}

// CreateHoldRequest defines the payload for acquiring a tentative hold.
type CreateHoldRequest struct {
	PatientID           *string `json:"patient_id,omitempty"`
	HoldType            string  `json:"hold_type" validate:"required"`
	ConsultationMode    string  `json:"consultation_mode"`
	HoldDurationMinutes int     `json:"hold_duration_minutes" validate:"min=0"`
	Notes               *string `json:"notes,omitempty"`
}

// ReleaseHoldRequest optionally annotates a hold release.
type ReleaseHoldRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// BlockSlotRequest manually blocks a single slot.
type BlockSlotRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes,omitempty"`
}

// ParseDate parses the wire date format used across the scheduling API.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
