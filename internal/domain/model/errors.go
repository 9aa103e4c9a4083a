package model

import (
	"errors"
	"fmt"
)

// ErrInvalidPassword is returned when a login candidate does not match the
// configured admin password.
var ErrInvalidPassword = errors.New("invalid password")

// ErrIntegrity is returned when a stored secret fails authentication during
// decryption (tampered ciphertext or wrong key). Callers must treat it as a
// hard failure of the operation; no plaintext is ever released.
var ErrIntegrity = errors.New("secret integrity check failed")

// ValidationError reports malformed or missing caller input. It is
// recoverable and surfaced to the caller with its message.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// RateLimitError is returned when a source IP is locked out. RetryAfter is
// the number of whole seconds until attempts may resume, rounded up.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %d seconds", e.RetryAfter)
}
