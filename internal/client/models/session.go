// Package models holds client-side views of server data.
package models

import "time"

type SessionUser struct {
	ID    string `json:"id"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// Session is the projected session returned by the server.
type Session struct {
	User    SessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
}
