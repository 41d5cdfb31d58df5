package auth

import (
	"maps"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
)

// Claim names used in session tokens.
const (
	ClaimID      = "id"
	ClaimRole    = "role"
	ClaimSubject = "sub"
	ClaimName    = "name"
	ClaimEmail   = "email"
	ClaimPicture = "picture"
	ClaimIssued  = "iat"
	ClaimExpires = "exp"
	ClaimTokenID = "jti"
)

// Token is the claim set carried by a session token.
type Token map[string]any

// SessionUser is the user-facing part of a Session.
type SessionUser struct {
	ID    string      `json:"id"`
	Role  models.Role `json:"role"`
	Name  string      `json:"name,omitempty"`
	Email string      `json:"email,omitempty"`
	Image string      `json:"image,omitempty"`
}

// Session is what callers see when they read the current session.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}

// ExtendToken copies the user's id and role onto token, replacing earlier
// values. It runs with a user only right after a successful Verify; on later
// reads user is nil and token is returned as is. The input map is not modified.
func ExtendToken(token Token, user *models.User) Token {
	if user == nil {
		return token
	}

	out := maps.Clone(token)
	if out == nil {
		out = Token{}
	}
	out[ClaimID] = user.ID
	out[ClaimRole] = string(user.Role)

	return out
}

// ProjectSession copies id and role from token onto session.User, replacing
// whatever was there. Missing claims project as empty values.
func ProjectSession(session Session, token Token) Session {
	session.User.ID = token.String(ClaimID)
	session.User.Role = models.Role(token.String(ClaimRole))
	return session
}

// DefaultSession builds the session fields that do not come from ExtendToken:
// name, email, image and expiry.
func DefaultSession(token Token) Session {
	s := Session{
		User: SessionUser{
			Name:  token.String(ClaimName),
			Email: token.String(ClaimEmail),
			Image: token.String(ClaimPicture),
		},
	}
	if exp, ok := token.Time(ClaimExpires); ok {
		s.Expires = exp
	}
	return s
}

// String returns the claim as a string, or "" when absent or not a string.
func (t Token) String(name string) string {
	switch v := t[name].(type) {
	case string:
		return v
	case models.Role:
		return string(v)
	}
	return ""
}

// Time reads a NumericDate-style claim (seconds since epoch).
func (t Token) Time(name string) (time.Time, bool) {
	switch v := t[name].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	}
	return time.Time{}, false
}
