package dto

import "encoding/json"

// Command is the uniform mutating-call contract: every command carries a
// client-generated command id and idempotency key so a retried submission
// replays the recorded result.
type Command struct {
	CommandID      string          `json:"command_id" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key" validate:"required"`
	AggregateID    string          `json:"aggregate_id"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
}

// ScheduleAppointmentPayload converts a held slot into a confirmed booking.
type ScheduleAppointmentPayload struct {
	HoldID    string  `json:"hold_id" validate:"required"`
	PatientID string  `json:"patient_id" validate:"required"`
	Notes     *string `json:"notes,omitempty"`
}

// CancelAppointmentPayload cancels a confirmed booking and frees capacity.
type CancelAppointmentPayload struct {
	AppointmentID string  `json:"appointment_id"`
	Reason        *string `json:"reason,omitempty"`
}
