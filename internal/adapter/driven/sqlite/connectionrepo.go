package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
	"github.com/ericfisherdev/bucketpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConnectionStore = (*ConnectionRepo)(nil)

// ConnectionRepo is the SQLite implementation of the ConnectionStore port
// interface. Secret columns hold vault-packed ciphertext strings.
type ConnectionRepo struct {
	db *DB
}

// NewConnectionRepo creates a new ConnectionRepo backed by the given DB.
func NewConnectionRepo(db *DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

const connectionColumns = `id, name, endpoint, region, force_path_style, access_key_encrypted, secret_key_encrypted, is_active, created_at`

// ListAll returns all profiles ordered by name.
func (r *ConnectionRepo) ListAll(ctx context.Context) ([]model.ConnectionProfile, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var profiles []model.ConnectionProfile
	for rows.Next() {
		p, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return profiles, nil
}

// GetByID retrieves a profile by id. Returns nil, nil if the profile does not exist.
func (r *ConnectionRepo) GetByID(ctx context.Context, id string) (*model.ConnectionProfile, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE id = ?`

	p, err := scanConnection(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", id, err)
	}

	return &p, nil
}

// GetActive returns the active profile, or nil, nil when no profile is active.
func (r *ConnectionRepo) GetActive(ctx context.Context) (*model.ConnectionProfile, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE is_active = 1`

	p, err := scanConnection(r.db.Reader.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active connection: %w", err)
	}

	return &p, nil
}

// Create inserts a new profile. The capacity guard is part of the INSERT
// statement, so two concurrent creates cannot both slip past the cap.
func (r *ConnectionRepo) Create(ctx context.Context, p model.ConnectionProfile) error {
	const query = `
		INSERT INTO connections (id, name, endpoint, region, force_path_style, access_key_encrypted, secret_key_encrypted, is_active, created_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, 0, ?
		WHERE (SELECT COUNT(*) FROM connections) < ?`

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		p.ID, p.Name, p.Endpoint, p.Region, boolToInt(p.ForcePathStyle),
		p.AccessKeyEncrypted, p.SecretKeyEncrypted, createdAt.UnixMilli(),
		model.MaxConnectionProfiles,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create connection %q: %w", p.Name, driven.ErrNameConflict)
		}
		return fmt.Errorf("create connection %q: %w", p.Name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("create connection %q: %w", p.Name, driven.ErrCapacity)
	}

	return nil
}

// Update replaces the mutable fields of an existing profile. The active flag
// and creation time are not touched here; activation has its own transition.
func (r *ConnectionRepo) Update(ctx context.Context, p model.ConnectionProfile) error {
	const query = `
		UPDATE connections
		SET name = ?, endpoint = ?, region = ?, force_path_style = ?, access_key_encrypted = ?, secret_key_encrypted = ?
		WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query,
		p.Name, p.Endpoint, p.Region, boolToInt(p.ForcePathStyle),
		p.AccessKeyEncrypted, p.SecretKeyEncrypted, p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update connection %s: %w", p.ID, driven.ErrNameConflict)
		}
		return fmt.Errorf("update connection %s: %w", p.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update connection %s: %w", p.ID, driven.ErrProfileNotFound)
	}

	return nil
}

// Delete removes a profile by id.
func (r *ConnectionRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM connections WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete connection %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete connection %s: %w", id, driven.ErrProfileNotFound)
	}

	return nil
}

// Activate clears the previous active profile and marks the given one active
// inside a single transaction, so readers never observe two active rows.
func (r *ConnectionRepo) Activate(ctx context.Context, id string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE connections SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("clear active connection: %w", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE connections SET is_active = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("activate connection %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("activate connection %s: %w", id, driven.ErrProfileNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit activate: %w", err)
	}

	return nil
}

// Deactivate clears the active flag. A no-op when nothing is active.
func (r *ConnectionRepo) Deactivate(ctx context.Context) error {
	const query = `UPDATE connections SET is_active = 0 WHERE is_active = 1`

	if _, err := r.db.Writer.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("deactivate connection: %w", err)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(s scanner) (model.ConnectionProfile, error) {
	var (
		p              model.ConnectionProfile
		forcePathStyle int
		isActive       int
		createdAt      int64
	)
	err := s.Scan(&p.ID, &p.Name, &p.Endpoint, &p.Region, &forcePathStyle,
		&p.AccessKeyEncrypted, &p.SecretKeyEncrypted, &isActive, &createdAt)
	if err != nil {
		return model.ConnectionProfile{}, err
	}

	p.ForcePathStyle = forcePathStyle != 0
	p.IsActive = isActive != 0
	p.CreatedAt = time.UnixMilli(createdAt)

	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
