package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the roles carried in access tokens.
type UserRole string

const (
	RolePatient    UserRole = "PATIENT"
	RoleDoctor     UserRole = "DOCTOR"
	RoleStaff      UserRole = "STAFF"
	RoleAdmin      UserRole = "ADMIN"
	RoleSuperAdmin UserRole = "SUPER_ADMIN"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// RequestContext carries the tenant headers every call must present.
type RequestContext struct {
	HospitalID string
	UserID     string
}
