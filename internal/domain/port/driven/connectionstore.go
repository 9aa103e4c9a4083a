package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

// ErrNameConflict is returned when a profile name is already taken.
var ErrNameConflict = errors.New("connection name already exists")

// ErrCapacity is returned when the profile registry is full.
var ErrCapacity = errors.New("connection profile limit reached")

// ErrProfileNotFound is returned when no profile exists for the given id.
var ErrProfileNotFound = errors.New("connection profile not found")

// ConnectionStore defines the driven port for persisted connection profiles.
// Secret fields are stored as vault-packed ciphertext; this interface never
// sees plaintext credentials.
type ConnectionStore interface {
	// ListAll returns all profiles ordered by name.
	ListAll(ctx context.Context) ([]model.ConnectionProfile, error)

	// GetByID retrieves a profile by id. Returns nil, nil if absent.
	GetByID(ctx context.Context, id string) (*model.ConnectionProfile, error)

	// GetActive returns the single active profile, or nil, nil when no
	// profile is active.
	GetActive(ctx context.Context) (*model.ConnectionProfile, error)

	// Create inserts a new profile. Returns ErrNameConflict if the name is
	// taken and ErrCapacity if the registry already holds
	// model.MaxConnectionProfiles entries. The capacity check and insert
	// happen in a single statement.
	Create(ctx context.Context, p model.ConnectionProfile) error

	// Update replaces the mutable fields of an existing profile. Returns
	// ErrProfileNotFound if the id is unknown and ErrNameConflict if the new
	// name collides with another profile.
	Update(ctx context.Context, p model.ConnectionProfile) error

	// Delete removes a profile. Returns ErrProfileNotFound if absent.
	Delete(ctx context.Context, id string) error

	// Activate marks the given profile active and clears any previously
	// active profile in the same transaction, preserving the at-most-one
	// active invariant. Returns ErrProfileNotFound if the id is unknown.
	Activate(ctx context.Context, id string) error

	// Deactivate clears the active flag on whichever profile holds it.
	// A no-op when no profile is active.
	Deactivate(ctx context.Context) error
}
