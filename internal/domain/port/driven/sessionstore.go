package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

// SessionStore defines the driven port for persisted admin sessions.
type SessionStore interface {
	// Create persists a new session row.
	Create(ctx context.Context, s model.Session) error

	// Get retrieves a session by token. Returns nil, nil if absent. Expiry
	// is not evaluated here; callers decide liveness from ExpiresAt.
	Get(ctx context.Context, token string) (*model.Session, error)

	// Delete removes a session. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error

	// PurgeExpired deletes sessions that expired before now and returns the
	// number removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
