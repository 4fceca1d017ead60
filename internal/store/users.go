// ABOUTME: SQLite operations for user accounts
// ABOUTME: Covers creation, lookups, login bookkeeping, and admin mutations

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const userColumns = `id, username, email, password_hash, license_key, hwid, pc_name, created_at, last_login, is_active, is_admin`

// CreateUser inserts a new account and returns its assigned id.
// Returns ErrDuplicate when the username, email, or license key is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) (int64, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, license_key, hwid, pc_name, created_at, is_active, is_admin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.Username,
		nullString(user.Email),
		user.PasswordHash,
		user.LicenseKey,
		nullString(user.HWID),
		nullString(user.PCName),
		createdAt.Format(time.RFC3339),
		user.IsActive,
		user.IsAdmin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("inserting user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted user id: %w", err)
	}

	s.logger.Info("user created", "user_id", id, "username", user.Username)
	return id, nil
}

// GetUserByID retrieves a user by primary key
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByLogin finds the account matching a username-or-email plus license key,
// the lookup performed at login.
func (s *SQLiteStore) GetUserByLogin(ctx context.Context, usernameOrEmail, licenseKey string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE (username = ? OR email = ?) AND license_key = ?
	`, usernameOrEmail, usernameOrEmail, licenseKey)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by exact username
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by exact email
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// GetUserByLicenseKey retrieves the account bound to a license key
func (s *SQLiteStore) GetUserByLicenseKey(ctx context.Context, licenseKey string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE license_key = ?`, licenseKey)
	return scanUser(row)
}

// GetUserByIdentifier finds a user by email or license key, used by
// password recovery where either identifier is accepted.
func (s *SQLiteStore) GetUserByIdentifier(ctx context.Context, emailOrLicenseKey string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE email = ? OR license_key = ?
	`, emailOrLicenseKey, emailOrLicenseKey)
	return scanUser(row)
}

// UpdateLoginInfo records a successful login: hardware id, machine name, and timestamp
func (s *SQLiteStore) UpdateLoginInfo(ctx context.Context, id int64, hwid, pcName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET hwid = ?, pc_name = COALESCE(NULLIF(?, ''), pc_name), last_login = ?
		WHERE id = ?
	`, hwid, pcName, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("updating login info: %w", err)
	}
	return nil
}

// UpdateLicenseKey rebinds an account to a new license key, used when a key
// expires or a purchase is transferred. Returns ErrDuplicate when the key is
// already bound to another account.
func (s *SQLiteStore) UpdateLicenseKey(ctx context.Context, id int64, licenseKey string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET license_key = ? WHERE id = ?`, licenseKey, id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("updating license key: %w", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	s.logger.Info("license key updated", "user_id", id)
	return nil
}

// SetPasswordHash replaces a user's password hash
func (s *SQLiteStore) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return requireRow(result)
}

// SetActive enables or disables an account
func (s *SQLiteStore) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("updating active flag: %w", err)
	}
	return requireRow(result)
}

// DeleteUser removes an account; catch records cascade
func (s *SQLiteStore) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireRow(result)
}

// ListUsers returns all non-admin accounts with catch aggregates, newest first
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*AdminUserRow, error) {
	month := time.Now().UTC().Format("2006-01")

	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.license_key, u.hwid, u.pc_name,
		       u.created_at, u.last_login, u.is_active, u.is_admin,
		       COUNT(c.id) AS total_catches,
		       COALESCE(SUM(CASE WHEN strftime('%Y-%m', c.caught_at) = ? THEN 1 ELSE 0 END), 0) AS month_catches
		FROM users u
		LEFT JOIN catches c ON c.user_id = u.id
		WHERE u.is_admin = 0
		GROUP BY u.id
		ORDER BY u.created_at DESC
	`, month)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*AdminUserRow
	for rows.Next() {
		var (
			row                 AdminUserRow
			email, hwid, pcName sql.NullString
			createdAt           string
			lastLogin           sql.NullString
		)
		if err := rows.Scan(
			&row.ID, &row.Username, &email, &row.PasswordHash, &row.LicenseKey, &hwid, &pcName,
			&createdAt, &lastLogin, &row.IsActive, &row.IsAdmin,
			&row.TotalCatches, &row.MonthCatches,
		); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}

		row.Email = email.String
		row.HWID = hwid.String
		row.PCName = pcName.String
		if row.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if lastLogin.Valid {
			t, err := parseTime(lastLogin.String)
			if err != nil {
				return nil, err
			}
			row.LastLogin = &t
		}
		users = append(users, &row)
	}
	return users, rows.Err()
}

// CountUsers returns the number of non-admin accounts
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// scanUser scans a single user row, mapping sql.ErrNoRows to ErrNotFound
func scanUser(row *sql.Row) (*User, error) {
	var (
		user                User
		email, hwid, pcName sql.NullString
		createdAt           string
		lastLogin           sql.NullString
	)

	err := row.Scan(
		&user.ID, &user.Username, &email, &user.PasswordHash, &user.LicenseKey,
		&hwid, &pcName, &createdAt, &lastLogin, &user.IsActive, &user.IsAdmin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	user.Email = email.String
	user.HWID = hwid.String
	user.PCName = pcName.String
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t, err := parseTime(lastLogin.String)
		if err != nil {
			return nil, err
		}
		user.LastLogin = &t
	}

	return &user, nil
}

// requireRow maps a zero-row UPDATE/DELETE to ErrNotFound
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// SQLite returns "UNIQUE constraint failed" in the error message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
