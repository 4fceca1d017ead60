// ABOUTME: Password recovery codes: creation and single-use consumption
// ABOUTME: Codes expire after a configured window and are burned on use

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrResetCodeInvalid is returned when a recovery code is unknown, already
// used, or past its expiry.
var ErrResetCodeInvalid = errors.New("reset code invalid or expired")

// CreatePasswordReset stores a new recovery code for a user
func (s *SQLiteStore) CreatePasswordReset(ctx context.Context, reset *PasswordReset) error {
	createdAt := reset.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, reset_code, expires_at, used, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`,
		reset.ID,
		reset.UserID,
		reset.ResetCode,
		reset.ExpiresAt.UTC().Format(time.RFC3339),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting password reset: %w", err)
	}

	s.logger.Info("password reset code created", "user_id", reset.UserID)
	return nil
}

// LatestPasswordReset returns the newest recovery code for a user, used or
// not. The admin panel surfaces it when a player contacts support.
func (s *SQLiteStore) LatestPasswordReset(ctx context.Context, userID int64) (*PasswordReset, error) {
	var (
		reset                PasswordReset
		expiresAt, createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, reset_code, expires_at, used, created_at
		FROM password_resets
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`, userID).Scan(
		&reset.ID, &reset.UserID, &reset.ResetCode, &expiresAt, &reset.Used, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest reset: %w", err)
	}

	if reset.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if reset.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	return &reset, nil
}

// ConsumePasswordReset looks up an unused, unexpired code and marks it used
// in the same transaction. Returns ErrResetCodeInvalid for unknown, used,
// or expired codes.
func (s *SQLiteStore) ConsumePasswordReset(ctx context.Context, code string) (*PasswordReset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		reset                PasswordReset
		expiresAt, createdAt string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, reset_code, expires_at, created_at
		FROM password_resets
		WHERE reset_code = ? AND used = 0 AND expires_at > ?
	`, code, time.Now().UTC().Format(time.RFC3339)).Scan(
		&reset.ID, &reset.UserID, &reset.ResetCode, &expiresAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrResetCodeInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("querying reset code: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE password_resets SET used = 1 WHERE id = ?`, reset.ID); err != nil {
		return nil, fmt.Errorf("marking reset code used: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reset consumption: %w", err)
	}

	if reset.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if reset.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	reset.Used = true

	return &reset, nil
}
