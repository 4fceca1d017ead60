// ABOUTME: Shared test helpers for the store package
// ABOUTME: Provides an in-memory SQLite store and account fixtures

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// nowUTC returns the current time truncated for stable comparisons
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// setupTestStore creates an in-memory store that is closed when the test ends
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

// createTestUser inserts an account with a unique username/license and returns it
func createTestUser(t *testing.T, s *SQLiteStore, username string) *User {
	t.Helper()

	user := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$10$fakehashfakehashfakehash",
		LicenseKey:   fmt.Sprintf("KEY-%s", username),
		HWID:         "hwid-" + username,
		PCName:       "DESKTOP-TEST",
		IsActive:     true,
	}

	id, err := s.CreateUser(context.Background(), user)
	require.NoError(t, err)
	user.ID = id
	return user
}

// appendTestCatch records a catch for the user at the given time
func appendTestCatch(t *testing.T, s *SQLiteStore, userID int64, at time.Time) int64 {
	t.Helper()

	id, err := s.AppendCatch(context.Background(), &Catch{
		UserID:     userID,
		FishType:   "salmon",
		FishRarity: "common",
		ExpGained:  10,
		CaughtAt:   at,
	})
	require.NoError(t, err)
	return id
}
