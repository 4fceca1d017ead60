// ABOUTME: Dynamic key/value settings storage
// ABOUTME: Backs the public config endpoint and the admin settings editor

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// publicSettingKeys are the settings exposed without authentication.
var publicSettingKeys = []string{"discord_link", "telegram_link", "support_email", "announcement"}

// GetSetting retrieves a single setting by key
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (*Setting, error) {
	var (
		setting            Setting
		value, description sql.NullString
		updatedAt          string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, value, description, updated_at FROM settings WHERE key = ?`, key,
	).Scan(&setting.Key, &value, &description, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying setting: %w", err)
	}

	setting.Value = value.String
	setting.Description = description.String
	if setting.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a setting value
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting setting: %w", err)
	}

	s.logger.Info("setting updated", "key", key)
	return nil
}

// ListSettings returns all settings ordered by key
func (s *SQLiteStore) ListSettings(ctx context.Context) ([]*Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, description, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	defer rows.Close()

	var settings []*Setting
	for rows.Next() {
		var (
			setting            Setting
			value, description sql.NullString
			updatedAt          string
		)
		if err := rows.Scan(&setting.Key, &value, &description, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning setting: %w", err)
		}
		setting.Value = value.String
		setting.Description = description.String
		if setting.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		settings = append(settings, &setting)
	}
	return settings, rows.Err()
}

// GetPublicSettings returns the whitelisted settings as a key/value map.
// Sensitive keys never appear here regardless of table contents.
func (s *SQLiteStore) GetPublicSettings(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string, len(publicSettingKeys))
	for _, key := range publicSettingKeys {
		setting, err := s.GetSetting(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[key] = setting.Value
	}
	return result, nil
}
