package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// AppointmentStatus tracks the confirmed booking lifecycle.
type AppointmentStatus string

const (
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the confirmed booking emitted by the commit protocol.
type Appointment struct {
	ID               string            `db:"id" json:"id"`
	HospitalID       string            `db:"hospital_id" json:"hospital_id"`
	SlotID           string            `db:"slot_id" json:"slot_id"`
	HoldID           string            `db:"hold_id" json:"hold_id"`
	DoctorProfileID  string            `db:"doctor_profile_id" json:"doctor_profile_id"`
	LocationID       string            `db:"location_id" json:"location_id"`
	PatientID        string            `db:"patient_id" json:"patient_id"`
	ConsultationMode ConsultationMode  `db:"consultation_mode" json:"consultation_mode"`
	SlotDate         time.Time         `db:"slot_date" json:"slot_date"`
	StartTime        string            `db:"start_time" json:"start_time"`
	EndTime          string            `db:"end_time" json:"end_time"`
	Status           AppointmentStatus `db:"status" json:"status"`
	Notes            *string           `db:"notes" json:"notes,omitempty"`
	BookedBy         string            `db:"booked_by" json:"booked_by"`
	CancelledAt      *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// CommandRecord stores the outcome of a processed command keyed by its
// idempotency key, so a retried command replays the recorded result instead of
// executing twice.
type CommandRecord struct {
	CommandID      string         `db:"command_id" json:"command_id"`
	IdempotencyKey string         `db:"idempotency_key" json:"idempotency_key"`
	CommandType    string         `db:"command_type" json:"command_type"`
	AggregateID    string         `db:"aggregate_id" json:"aggregate_id"`
	Result         types.JSONText `db:"result" json:"result"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
