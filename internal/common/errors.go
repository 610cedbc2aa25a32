// Package common defines shared constants and sentinel errors used across
// Penlight components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Authentication errors. ErrorInvalidCredentials covers both an unknown
	// email and a wrong password so the two are indistinguishable to clients.
	ErrorInvalidCredentials = errors.New("invalid credentials")
	ErrorUnauthenticated    = errors.New("unauthenticated")

	// Registration errors.
	ErrorEmailTaken   = errors.New("email already in use")
	ErrorRegistration = errors.New("registration failed")

	// Token lifecycle errors.
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenClassMismatch = errors.New("token class mismatch")
)
