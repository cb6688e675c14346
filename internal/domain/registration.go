package domain

import "time"

// PendingRegistration is the ephemeral record held in the OTP store between
// a registration request and its verification. It never touches the
// relational store; the cache TTL is its whole lifecycle.
type PendingRegistration struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	OTP          string    `json:"otp"`
	IssuedAt     time.Time `json:"issued_at"`
}
