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
var _ driven.RateLimitStore = (*RateLimitRepo)(nil)

// RateLimitRepo is the SQLite implementation of the RateLimitStore port
// interface. Timestamps are stored as unix milliseconds so window arithmetic
// can happen inside a single conditional statement. All mutations run on the
// single-connection writer, which serializes concurrent updates for the same
// IP without lost increments.
type RateLimitRepo struct {
	db *DB
}

// NewRateLimitRepo creates a new RateLimitRepo backed by the given DB.
func NewRateLimitRepo(db *DB) *RateLimitRepo {
	return &RateLimitRepo{db: db}
}

// Get retrieves the login attempt record for an IP. Returns nil, nil if no
// record exists.
func (r *RateLimitRepo) Get(ctx context.Context, ip string) (*model.LoginAttempt, error) {
	const query = `SELECT ip, attempt_count, window_start, blocked_until FROM login_attempts WHERE ip = ?`

	var (
		rec          model.LoginAttempt
		windowStart  int64
		blockedUntil sql.NullInt64
	)
	err := r.db.Reader.QueryRowContext(ctx, query, ip).Scan(&rec.IP, &rec.AttemptCount, &windowStart, &blockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get login attempts for %s: %w", ip, err)
	}

	rec.WindowStart = time.UnixMilli(windowStart)
	if blockedUntil.Valid {
		t := time.UnixMilli(blockedUntil.Int64)
		rec.BlockedUntil = &t
	}

	return &rec, nil
}

// RecordFailure creates a fresh record or increments the existing one in a
// single upsert. When the stored window is older than window relative to now,
// the CASE arms reset the record instead of incrementing, so a separate
// read-then-write is never needed.
func (r *RateLimitRepo) RecordFailure(ctx context.Context, ip string, now time.Time, window time.Duration) error {
	const query = `
		INSERT INTO login_attempts (ip, attempt_count, window_start, blocked_until)
		VALUES (?, 1, ?, NULL)
		ON CONFLICT (ip) DO UPDATE SET
			attempt_count = CASE WHEN excluded.window_start - login_attempts.window_start > ?
				THEN 1 ELSE login_attempts.attempt_count + 1 END,
			window_start = CASE WHEN excluded.window_start - login_attempts.window_start > ?
				THEN excluded.window_start ELSE login_attempts.window_start END,
			blocked_until = CASE WHEN excluded.window_start - login_attempts.window_start > ?
				THEN NULL ELSE login_attempts.blocked_until END`

	windowMs := window.Milliseconds()
	_, err := r.db.Writer.ExecContext(ctx, query, ip, now.UnixMilli(), windowMs, windowMs, windowMs)
	if err != nil {
		return fmt.Errorf("record login failure for %s: %w", ip, err)
	}

	return nil
}

// Block sets the lockout deadline on an IP's record unless a lockout is
// already in force.
func (r *RateLimitRepo) Block(ctx context.Context, ip string, now, until time.Time) error {
	const query = `
		UPDATE login_attempts SET blocked_until = ?
		WHERE ip = ? AND (blocked_until IS NULL OR blocked_until < ?)`

	_, err := r.db.Writer.ExecContext(ctx, query, until.UnixMilli(), ip, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("block %s: %w", ip, err)
	}

	return nil
}

// Delete removes the record for an IP. Deleting an absent record is not an error.
func (r *RateLimitRepo) Delete(ctx context.Context, ip string) error {
	const query = `DELETE FROM login_attempts WHERE ip = ?`

	if _, err := r.db.Writer.ExecContext(ctx, query, ip); err != nil {
		return fmt.Errorf("delete login attempts for %s: %w", ip, err)
	}

	return nil
}

// PurgeStale deletes records whose window started before cutoff, keeping any
// record whose lockout is still in force.
func (r *RateLimitRepo) PurgeStale(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const query = `
		DELETE FROM login_attempts
		WHERE window_start < ? AND (blocked_until IS NULL OR blocked_until < ?)`

	result, err := r.db.Writer.ExecContext(ctx, query, cutoff.UnixMilli(), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge stale login attempts: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}

	return rows, nil
}
