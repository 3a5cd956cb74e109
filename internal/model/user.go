package model

import "time"

// User represents an organizer account as stored in the `users` table.
// The json tags are omitted because handlers expose their own response
// shapes and PasswordHash must never leave the service.
//
// Fields:
//
//	ID           – primary key (UUID).
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash.
//	Name         – display name given at sign-up.
//	RollNumber   – roll number given at sign-up.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	RollNumber   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshToken models an entry in the `refresh_tokens` table.  The
// plain token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
