// Package models holds the server-side persistent entities.
package models

import "time"

// Role is the access level attached to a user and copied into session tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// User is a stored account. HashedPassword is nil for accounts that were
// created without a password; such accounts cannot sign in with credentials.
type User struct {
	ID             string
	Email          string
	Name           string
	Image          string
	HashedPassword *string
	Role           Role
	CreatedAt      time.Time
}

// HasPassword reports whether a non-empty password hash is stored.
func (u *User) HasPassword() bool {
	return u.HashedPassword != nil && *u.HashedPassword != ""
}
