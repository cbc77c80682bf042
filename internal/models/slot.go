package models

import "time"

// SlotStatus reflects a slot's bookability.
type SlotStatus string

const (
	SlotStatusAvailable   SlotStatus = "available"
	SlotStatusBlocked     SlotStatus = "blocked"
	SlotStatusFullyBooked SlotStatus = "fully_booked"
)

// ScheduleSource records which definition kind produced a slot.
type ScheduleSource string

const (
	SourceBaseSchedule ScheduleSource = "base_schedule"
	SourceOverride     ScheduleSource = "override"
)

// Slot is a generated, individually bookable unit of time. Capacity counters
// are mutated only through the hold and booking transactions; generation may
// refresh capacity but never shrinks it below current bookings.
type Slot struct {
	ID                  string           `db:"id" json:"id"`
	HospitalID          string           `db:"hospital_id" json:"hospital_id"`
	DoctorProfileID     string           `db:"doctor_profile_id" json:"doctor_profile_id"`
	LocationID          string           `db:"location_id" json:"location_id"`
	ScheduleSource      ScheduleSource   `db:"schedule_source" json:"schedule_source"`
	SlotDate            time.Time        `db:"slot_date" json:"slot_date"`
	StartTime           string           `db:"start_time" json:"start_time"`
	EndTime             string           `db:"end_time" json:"end_time"`
	DurationMinutes     int              `db:"duration_minutes" json:"duration_minutes"`
	ConsultationMode    ConsultationMode `db:"consultation_mode" json:"consultation_mode"`
	MaxCapacity         int              `db:"max_capacity" json:"max_capacity"`
	MaxInPersonCapacity int              `db:"max_in_person_capacity" json:"max_in_person_capacity"`
	MaxTeleCapacity     int              `db:"max_tele_capacity" json:"max_tele_capacity"`
	CurrentBookings     int              `db:"current_bookings" json:"current_bookings"`
	InPersonBookings    int              `db:"in_person_bookings" json:"in_person_bookings"`
	TeleBookings        int              `db:"tele_bookings" json:"tele_bookings"`
	Status              SlotStatus       `db:"status" json:"status"`
	BlockedReason       *string          `db:"blocked_reason" json:"blocked_reason,omitempty"`
	BlockedBy           *string          `db:"blocked_by" json:"blocked_by,omitempty"`
	BlockedAt           *time.Time       `db:"blocked_at" json:"blocked_at,omitempty"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time        `db:"updated_at" json:"updated_at"`
}

// ComputeStatus derives status from block state and fullness. Blocked always
// wins over the computed fullness.
func (s *Slot) ComputeStatus() SlotStatus {
	if s.Status == SlotStatusBlocked {
		return SlotStatusBlocked
	}
	if s.CurrentBookings >= s.MaxCapacity {
		return SlotStatusFullyBooked
	}
	return SlotStatusAvailable
}

// CountersConsistent checks the core capacity invariant: the mode counters sum
// to the total, and the total never exceeds capacity.
func (s *Slot) CountersConsistent() bool {
	if s.CurrentBookings < 0 || s.CurrentBookings > s.MaxCapacity {
		return false
	}
	return s.InPersonBookings+s.TeleBookings == s.CurrentBookings
}

// ModeCapacity returns the booking cap for the requested mode on this slot.
// A slot offering a single mode treats total capacity as that mode's cap.
func (s *Slot) ModeCapacity(mode ConsultationMode) int {
	switch s.ConsultationMode {
	case ModeBoth:
		if mode == ModeTele {
			return s.MaxTeleCapacity
		}
		return s.MaxInPersonCapacity
	default:
		if mode != s.ConsultationMode {
			return 0
		}
		return s.MaxCapacity
	}
}

// ModeBookings returns the committed bookings for the requested mode.
func (s *Slot) ModeBookings(mode ConsultationMode) int {
	if mode == ModeTele {
		return s.TeleBookings
	}
	return s.InPersonBookings
}

// Remaining computes effective remaining capacity for a mode, given the number
// of active unexpired holds already counted against that mode. It is bounded
// by both the mode sub-capacity and the slot total.
func (s *Slot) Remaining(mode ConsultationMode, activeModeHolds, activeTotalHolds int) int {
	byMode := s.ModeCapacity(mode) - s.ModeBookings(mode) - activeModeHolds
	byTotal := s.MaxCapacity - s.CurrentBookings - activeTotalHolds
	if byMode < byTotal {
		return byMode
	}
	return byTotal
}

// SlotFilter describes availability search parameters.
type SlotFilter struct {
	HospitalID       string
	DoctorProfileID  string
	LocationID       string
	Specialty        string
	StartDate        *time.Time
	EndDate          *time.Time
	ConsultationMode ConsultationMode
	IncludeClosed    bool
}
