package model

import "time"

// Session is an authenticated admin session bound to a client-side cookie.
type Session struct {
	Token     string
	LoginTime time.Time
	ExpiresAt time.Time
}

// Valid reports whether the session is still live at the given instant.
// Expired sessions are treated as absent, not explicitly revoked.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
