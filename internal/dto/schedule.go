package dto

// CreateBaseScheduleRequest defines the payload for a new weekly template.
type CreateBaseScheduleRequest struct {
	DoctorProfileID     string `json:"doctor_profile_id" validate:"required"`
	LocationID          string `json:"location_id" validate:"required"`
	DayOfWeek           int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime           string `json:"start_time" validate:"required"`
	EndTime             string `json:"end_time" validate:"required"`
	SlotDurationMinutes int    `json:"slot_duration_minutes" validate:"required,min=1"`
	BufferTimeMinutes   int    `json:"buffer_time_minutes" validate:"min=0"`
	MaxAppointments     int    `json:"max_appointments_per_slot" validate:"required,min=1"`
	ConsultationMode    string `json:"consultation_mode" validate:"required"`
	MaxInPersonCapacity int    `json:"max_in_person_capacity" validate:"min=0"`
	MaxTeleCapacity     int    `json:"max_tele_capacity" validate:"min=0"`
	EffectiveFrom       string `json:"effective_from" validate:"required"`
	EffectiveUntil      string `json:"effective_until"`
}

// CreateOverrideRequest replaces a single date's availability.
type CreateOverrideRequest struct {
	DoctorProfileID     string  `json:"doctor_profile_id" validate:"required"`
	LocationID          string  `json:"location_id" validate:"required"`
	OverrideDate        string  `json:"override_date" validate:"required"`
	StartTime           string  `json:"start_time" validate:"required"`
	EndTime             string  `json:"end_time" validate:"required"`
	SlotDurationMinutes int     `json:"slot_duration_minutes" validate:"required,min=1"`
	BufferTimeMinutes   int     `json:"buffer_time_minutes" validate:"min=0"`
	MaxAppointments     int     `json:"max_appointments_per_slot" validate:"required,min=1"`
	ConsultationMode    string  `json:"consultation_mode" validate:"required"`
	MaxInPersonCapacity int     `json:"max_in_person_capacity" validate:"min=0"`
	MaxTeleCapacity     int     `json:"max_tele_capacity" validate:"min=0"`
	Reason              *string `json:"reason,omitempty"`
}

// CreateForcedBlockRequest marks a doctor unavailable for an interval.
type CreateForcedBlockRequest struct {
	DoctorProfileID string  `json:"doctor_profile_id" validate:"required"`
	StartDatetime   string  `json:"start_datetime" validate:"required"`
	EndDatetime     string  `json:"end_datetime" validate:"required"`
	Reason          string  `json:"reason" validate:"required"`
	Notes           *string `json:"notes,omitempty"`
}

// RegenerateSlotsRequest triggers regeneration for a doctor and date range.
type RegenerateSlotsRequest struct {
	DoctorProfileID string `json:"doctor_profile_id" validate:"required"`
	StartDate       string `json:"start_date" validate:"required"`
	EndDate         string `json:"end_date" validate:"required"`
}
