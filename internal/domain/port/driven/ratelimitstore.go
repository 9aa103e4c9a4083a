package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

// RateLimitStore defines the driven port for durable per-IP login attempt
// records. Mutations are single conditional statements against the store so
// concurrent requests from the same address cannot lose updates; callers never
// use separate read-then-write sequences to mutate a record.
type RateLimitStore interface {
	// Get retrieves the record for an IP. Returns nil, nil if absent.
	Get(ctx context.Context, ip string) (*model.LoginAttempt, error)

	// RecordFailure atomically creates a fresh record with attempt count 1,
	// or increments the existing count in place preserving the window start.
	// If the existing window is older than window relative to now, the record
	// is reset to a fresh one in the same statement.
	RecordFailure(ctx context.Context, ip string, now time.Time, window time.Duration) error

	// Block sets the lockout deadline on an IP's record. The write is
	// conditional: an already-active lockout is left untouched.
	Block(ctx context.Context, ip string, now, until time.Time) error

	// Delete removes the record for an IP entirely. Used both on successful
	// login (full reset) and when a stale window is observed.
	Delete(ctx context.Context, ip string) error

	// PurgeStale deletes records whose window started before cutoff and whose
	// lockout, if any, has already passed. Returns the number removed.
	PurgeStale(ctx context.Context, cutoff, now time.Time) (int64, error)
}
