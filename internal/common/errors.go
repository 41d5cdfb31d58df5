// Package common defines shared constants and sentinel errors used across
// client and server layers of authkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Credential errors. Both collapse to a single user-facing message;
	// "unknown email" and "no password set" are reported as ErrInvalidCredentials.
	ErrMissingFields      = errors.New("invalid credentials: please fill in all fields")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Configuration errors.
	ErrMissingSecret       = errors.New("secret key is not set")
	ErrUnsupportedStrategy = errors.New("unsupported session strategy")
	ErrUnsupportedStorage  = errors.New("unsupported storage backend")
	ErrInvalidTokenTTL     = errors.New("token validity must be positive")
)
