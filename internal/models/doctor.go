package models

import "time"

// DoctorProfile is the scheduling-relevant projection of a doctor.
type DoctorProfile struct {
	ID         string    `db:"id" json:"id"`
	HospitalID string    `db:"hospital_id" json:"hospital_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Specialty  string    `db:"specialty" json:"specialty"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Location is a bookable clinic site.
type Location struct {
	ID         string    `db:"id" json:"id"`
	HospitalID string    `db:"hospital_id" json:"hospital_id"`
	Name       string    `db:"name" json:"name"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
