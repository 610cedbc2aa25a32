// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is the stored credential record. PasswordHash and RefreshTokenHash
// never leave the server; responses carry a Principal instead.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string

	// RefreshTokenHash holds the fingerprint of the single currently valid
	// refresh token, or nil when no session is active. A new login or
	// refresh rotation overwrites it; logout clears it.
	RefreshTokenHash *string

	// AvatarID references the user's avatar in public_files, or nil.
	AvatarID *string

	CreatedAt time.Time
}

// Principal is the authenticated identity attached to a request after a
// guard succeeds. It is derived from a User and carries no secrets.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Principal strips credential material from the user record.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Name: u.Name}
}
