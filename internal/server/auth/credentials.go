// Package auth implements credential verification and the shaping of session
// tokens: identity fields are copied onto a token once at sign-in and projected
// onto the session on every read.
package auth

import "github.com/dmitrijs2005/authkeeper/internal/common"

// Credentials is the email/password pair submitted at sign-in.
type Credentials struct {
	Email    string
	Password string
}

// Validate fails with common.ErrMissingFields when either field is empty.
func (c Credentials) Validate() error {
	if c.Email == "" || c.Password == "" {
		return common.ErrMissingFields
	}
	return nil
}
