package model

import "time"

// LoginAttempt is the per-source-IP rate limit record. One record exists per
// distinct source IP. AttemptCount only grows within an active window;
// BlockedUntil, once set, is cleared only by window expiry or a successful
// login (which deletes the record entirely).
type LoginAttempt struct {
	IP           string
	AttemptCount int
	WindowStart  time.Time
	BlockedUntil *time.Time
}
