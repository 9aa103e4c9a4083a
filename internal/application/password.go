package application

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"unicode"

	"golang.org/x/crypto/argon2"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

// MinPasswordLength is the minimum admin password length.
const MinPasswordLength = 12

// Argon2id parameters. Verification cost is the brute-force deterrent;
// AuthService bounds login concurrency instead of cheapening the hash.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLength   = 32
)

// CheckStrength evaluates password complexity rules in fixed order and
// returns the first failing rule's reason. The order is part of the contract:
// minimum length, lowercase, uppercase, digit, special character.
func CheckStrength(password string) error {
	if len(password) < MinPasswordLength {
		return model.Validationf("password must be at least %d characters long", MinPasswordLength)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasLower {
		return model.Validationf("password must contain a lowercase letter")
	}
	if !hasUpper {
		return model.Validationf("password must contain an uppercase letter")
	}
	if !hasDigit {
		return model.Validationf("password must contain a digit")
	}
	if !hasSpecial {
		return model.Validationf("password must contain a special character")
	}

	return nil
}

// PasswordDigest is a salted argon2id digest of the admin password. It is
// computed once at startup and cached for the process lifetime.
type PasswordDigest struct {
	salt []byte
	hash []byte
}

// HashPassword derives an argon2id digest with a fresh random salt.
func HashPassword(password string) (*PasswordDigest, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate password salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return &PasswordDigest{salt: salt, hash: hash}, nil
}

// Verify reports whether candidate matches the digest. The recomputed hash is
// compared in constant time, so the result leaks nothing about where a
// mismatch occurred.
func (d *PasswordDigest) Verify(candidate string) bool {
	computed := argon2.IDKey([]byte(candidate), d.salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	return subtle.ConstantTimeCompare(computed, d.hash) == 1
}
