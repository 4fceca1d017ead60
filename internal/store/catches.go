// ABOUTME: Append-only catch records and the statistics queries derived from them
// ABOUTME: Monotonic record ids come from the catches AUTOINCREMENT primary key

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendCatch persists a new catch record and returns its assigned id.
// The table is append-only: ids increase monotonically and rows are never
// updated or deleted by this package (user deletion cascades aside).
func (s *SQLiteStore) AppendCatch(ctx context.Context, catch *Catch) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO catches (user_id, fish_type, fish_rarity, exp_gained, caught_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		catch.UserID,
		catch.FishType,
		catch.FishRarity,
		catch.ExpGained,
		catch.CaughtAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting catch: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading inserted catch id: %w", err)
	}

	s.logger.Debug("catch recorded",
		"catch_id", id,
		"user_id", catch.UserID,
		"fish_type", catch.FishType,
		"fish_rarity", catch.FishRarity,
	)
	return id, nil
}

// CountCatchesSince returns the number of catches recorded at or after the given time
func (s *SQLiteStore) CountCatchesSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM catches WHERE caught_at >= ?`,
		since.UTC().Format(time.RFC3339),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting catches: %w", err)
	}
	return n, nil
}

// GetUserStats aggregates catch totals and leaderboard ranks for the account
// bound to a license key
func (s *SQLiteStore) GetUserStats(ctx context.Context, licenseKey string) (*UserStats, error) {
	user, err := s.GetUserByLicenseKey(ctx, licenseKey)
	if err != nil {
		return nil, err
	}

	month := time.Now().UTC().Format("2006-01")
	stats := &UserStats{
		Username:    user.Username,
		Email:       user.Email,
		MemberSince: user.CreatedAt,
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN strftime('%Y-%m', caught_at) = ? THEN 1 ELSE 0 END), 0)
		FROM catches WHERE user_id = ?
	`, month, user.ID).Scan(&stats.TotalCatches, &stats.MonthCatches)
	if err != nil {
		return nil, fmt.Errorf("aggregating catches: %w", err)
	}

	// Rank = 1 + number of users with strictly more catches in the window
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1 FROM (
			SELECT user_id, COUNT(*) AS n
			FROM catches
			WHERE strftime('%Y-%m', caught_at) = ?
			GROUP BY user_id
		) ranked WHERE n > ?
	`, month, stats.MonthCatches).Scan(&stats.RankMonthly)
	if err != nil {
		return nil, fmt.Errorf("computing monthly rank: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) + 1 FROM (
			SELECT user_id, COUNT(*) AS n
			FROM catches
			GROUP BY user_id
		) ranked WHERE n > ?
	`, stats.TotalCatches).Scan(&stats.RankAlltime)
	if err != nil {
		return nil, fmt.Errorf("computing all-time rank: %w", err)
	}

	return stats, nil
}

// MonthlyRanking returns the top users by catches in the current month
func (s *SQLiteStore) MonthlyRanking(ctx context.Context, limit int) ([]RankingEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	month := time.Now().UTC().Format("2006-01")

	return s.queryRanking(ctx, `
		SELECT u.username, COUNT(c.id) AS n,
		       ROW_NUMBER() OVER (ORDER BY COUNT(c.id) DESC) AS rank
		FROM catches c
		JOIN users u ON c.user_id = u.id
		WHERE strftime('%Y-%m', c.caught_at) = ?
		GROUP BY u.id, u.username
		ORDER BY n DESC
		LIMIT ?
	`, month, limit)
}

// AlltimeRanking returns the top users by total catches
func (s *SQLiteStore) AlltimeRanking(ctx context.Context, limit int) ([]RankingEntry, error) {
	if limit <= 0 {
		limit = 5
	}

	return s.queryRanking(ctx, `
		SELECT u.username, COUNT(c.id) AS n,
		       ROW_NUMBER() OVER (ORDER BY COUNT(c.id) DESC) AS rank
		FROM catches c
		JOIN users u ON c.user_id = u.id
		GROUP BY u.id, u.username
		ORDER BY n DESC
		LIMIT ?
	`, limit)
}

func (s *SQLiteStore) queryRanking(ctx context.Context, query string, args ...any) ([]RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ranking: %w", err)
	}
	defer rows.Close()

	var entries []RankingEntry
	for rows.Next() {
		var e RankingEntry
		if err := rows.Scan(&e.Username, &e.Catches, &e.Rank); err != nil {
			return nil, fmt.Errorf("scanning ranking row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// getCatch retrieves a catch by id; used by tests to verify durable writes
func (s *SQLiteStore) getCatch(ctx context.Context, id int64) (*Catch, error) {
	var (
		catch    Catch
		caughtAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, fish_type, fish_rarity, exp_gained, caught_at
		FROM catches WHERE id = ?
	`, id).Scan(&catch.ID, &catch.UserID, &catch.FishType, &catch.FishRarity, &catch.ExpGained, &caughtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying catch: %w", err)
	}
	if catch.CaughtAt, err = parseTime(caughtAt); err != nil {
		return nil, err
	}
	return &catch, nil
}
