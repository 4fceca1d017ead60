// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides account/catch/settings persistence with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.seedSettings(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding settings: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			email         TEXT UNIQUE,
			password_hash TEXT NOT NULL,
			license_key   TEXT NOT NULL UNIQUE,
			hwid          TEXT,
			pc_name       TEXT,
			created_at    TEXT NOT NULL,
			last_login    TEXT,
			is_active     INTEGER NOT NULL DEFAULT 1,
			is_admin      INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_users_license_key ON users(license_key);
		CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

		CREATE TABLE IF NOT EXISTS catches (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL,
			fish_type   TEXT NOT NULL,
			fish_rarity TEXT NOT NULL,
			exp_gained  INTEGER NOT NULL DEFAULT 0,
			caught_at   TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_catches_user ON catches(user_id);
		CREATE INDEX IF NOT EXISTS idx_catches_caught_at ON catches(caught_at);

		CREATE TABLE IF NOT EXISTS password_resets (
			id         TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL,
			reset_code TEXT NOT NULL UNIQUE,
			expires_at TEXT NOT NULL,
			used       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,

			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_resets_code ON password_resets(reset_code);

		CREATE TABLE IF NOT EXISTS settings (
			key         TEXT PRIMARY KEY,
			value       TEXT,
			description TEXT,
			updated_at  TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// defaultSettings are inserted on first startup if absent.
var defaultSettings = []Setting{
	{Key: "discord_link", Value: "", Description: "Discord server invite link"},
	{Key: "telegram_link", Value: "", Description: "Telegram channel link"},
	{Key: "support_email", Value: "", Description: "Support contact email"},
	{Key: "maintenance_mode", Value: "false", Description: "Maintenance mode (true/false)"},
	{Key: "announcement", Value: "", Description: "Announcement shown to users"},
}

// seedSettings inserts the default settings rows without overwriting existing values
func (s *SQLiteStore) seedSettings() error {
	now := time.Now().UTC().Format(time.RFC3339)
	for _, setting := range defaultSettings {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO settings (key, value, description, updated_at) VALUES (?, ?, ?, ?)`,
			setting.Key, setting.Value, setting.Description, now,
		)
		if err != nil {
			return fmt.Errorf("seeding setting %q: %w", setting.Key, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// nullString converts an empty string to a SQL NULL
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseTime parses an RFC3339 timestamp stored in a TEXT column
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
