package models

import (
	"fmt"
	"time"
)

// ConsultationMode is the closed set of visit modes a definition can offer.
type ConsultationMode string

const (
	ModeInPerson ConsultationMode = "in_person"
	ModeTele     ConsultationMode = "tele_consultation"
	ModeBoth     ConsultationMode = "both"
)

// Valid reports whether the mode is a member of the closed enumeration.
func (m ConsultationMode) Valid() bool {
	switch m {
	case ModeInPerson, ModeTele, ModeBoth:
		return true
	}
	return false
}

// BaseSchedule is a recurring weekly availability template for a doctor at a
// location. Changed definitions are superseded by new effective-dated rows and
// deactivated, never mutated or deleted, so history stays intact.
type BaseSchedule struct {
	ID                  string           `db:"id" json:"id"`
	HospitalID          string           `db:"hospital_id" json:"hospital_id"`
	DoctorProfileID     string           `db:"doctor_profile_id" json:"doctor_profile_id"`
	LocationID          string           `db:"location_id" json:"location_id"`
	DayOfWeek           int              `db:"day_of_week" json:"day_of_week"`
	StartTime           string           `db:"start_time" json:"start_time"`
	EndTime             string           `db:"end_time" json:"end_time"`
	SlotDurationMinutes int              `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	BufferTimeMinutes   int              `db:"buffer_time_minutes" json:"buffer_time_minutes"`
	MaxAppointments     int              `db:"max_appointments_per_slot" json:"max_appointments_per_slot"`
	ConsultationMode    ConsultationMode `db:"consultation_mode" json:"consultation_mode"`
	MaxInPersonCapacity int              `db:"max_in_person_capacity" json:"max_in_person_capacity"`
	MaxTeleCapacity     int              `db:"max_tele_capacity" json:"max_tele_capacity"`
	EffectiveFrom       time.Time        `db:"effective_from" json:"effective_from"`
	EffectiveUntil      *time.Time       `db:"effective_until" json:"effective_until,omitempty"`
	IsActive            bool             `db:"is_active" json:"is_active"`
	CreatedBy           string           `db:"created_by" json:"created_by"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the definition's effective window includes the date.
func (s *BaseSchedule) Covers(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	if day.Before(s.EffectiveFrom.Truncate(24 * time.Hour)) {
		return false
	}
	if s.EffectiveUntil != nil && day.After(s.EffectiveUntil.Truncate(24*time.Hour)) {
		return false
	}
	return true
}

// ScheduleOverride replaces the base schedule for a single calendar date.
type ScheduleOverride struct {
	ID                  string           `db:"id" json:"id"`
	HospitalID          string           `db:"hospital_id" json:"hospital_id"`
	DoctorProfileID     string           `db:"doctor_profile_id" json:"doctor_profile_id"`
	LocationID          string           `db:"location_id" json:"location_id"`
	OverrideDate        time.Time        `db:"override_date" json:"override_date"`
	StartTime           string           `db:"start_time" json:"start_time"`
	EndTime             string           `db:"end_time" json:"end_time"`
	SlotDurationMinutes int              `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	BufferTimeMinutes   int              `db:"buffer_time_minutes" json:"buffer_time_minutes"`
	MaxAppointments     int              `db:"max_appointments_per_slot" json:"max_appointments_per_slot"`
	ConsultationMode    ConsultationMode `db:"consultation_mode" json:"consultation_mode"`
	MaxInPersonCapacity int              `db:"max_in_person_capacity" json:"max_in_person_capacity"`
	MaxTeleCapacity     int              `db:"max_tele_capacity" json:"max_tele_capacity"`
	Reason              *string          `db:"reason" json:"reason,omitempty"`
	CreatedBy           string           `db:"created_by" json:"created_by"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
}

// ForcedBlock is a hard unavailability interval (leave, emergency) that
// suppresses every slot it intersects, regardless of overrides.
type ForcedBlock struct {
	ID              string    `db:"id" json:"id"`
	HospitalID      string    `db:"hospital_id" json:"hospital_id"`
	DoctorProfileID string    `db:"doctor_profile_id" json:"doctor_profile_id"`
	StartDatetime   time.Time `db:"start_datetime" json:"start_datetime"`
	EndDatetime     time.Time `db:"end_datetime" json:"end_datetime"`
	Reason          string    `db:"reason" json:"reason"`
	Notes           *string   `db:"notes" json:"notes,omitempty"`
	CreatedBy       string    `db:"created_by" json:"created_by"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Intersects reports whether the block overlaps [start, end).
func (b *ForcedBlock) Intersects(start, end time.Time) bool {
	return start.Before(b.EndDatetime) && b.StartDatetime.Before(end)
}

// BaseScheduleFilter narrows base schedule listings.
type BaseScheduleFilter struct {
	HospitalID      string
	DoctorProfileID string
	LocationID      string
	DayOfWeek       *int
	ActiveOnly      bool
}

// OverrideFilter narrows override listings.
type OverrideFilter struct {
	HospitalID      string
	DoctorProfileID string
	StartDate       *time.Time
	EndDate         *time.Time
}

// ScheduleConflictError is returned when a definition collides with an
// existing one for the same doctor, location and weekday.
type ScheduleConflictError struct {
	Message    string        `json:"message"`
	Existing   *BaseSchedule `json:"existing"`
	ConflictOn string        `json:"conflict_on"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// ParseClock converts an "HH:MM" wall-clock string to minutes from midnight.
func ParseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", raw, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
