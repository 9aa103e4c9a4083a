package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port interface.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create persists a new session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	const query = `INSERT INTO sessions (token, login_time, expires_at) VALUES (?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query, s.Token, s.LoginTime.UnixMilli(), s.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// Get retrieves a session by token. Returns nil, nil if no session exists.
func (r *SessionRepo) Get(ctx context.Context, token string) (*model.Session, error) {
	const query = `SELECT token, login_time, expires_at FROM sessions WHERE token = ?`

	var (
		s         model.Session
		loginTime int64
		expiresAt int64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, token).Scan(&s.Token, &loginTime, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.LoginTime = time.UnixMilli(loginTime)
	s.ExpiresAt = time.UnixMilli(expiresAt)

	return &s, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	const query = `DELETE FROM sessions WHERE token = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// PurgeExpired deletes sessions that expired before now.
func (r *SessionRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < ?`

	result, err := r.db.Writer.ExecContext(ctx, query, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}
