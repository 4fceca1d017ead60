// ABOUTME: Tests for catch records, statistics, and leaderboards
// ABOUTME: Verifies monotonic ids, aggregates, and rank computation

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCatch_MonotonicIDs(t *testing.T) {
	s := setupTestStore(t)
	alice := createTestUser(t, s, "alice")

	var prev int64
	for i := 0; i < 5; i++ {
		id := appendTestCatch(t, s, alice.ID, nowUTC())
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestAppendCatch_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	caughtAt := nowUTC().Add(-time.Hour)
	id, err := s.AppendCatch(ctx, &Catch{
		UserID:     alice.ID,
		FishType:   "tuna",
		FishRarity: "rare",
		ExpGained:  50,
		CaughtAt:   caughtAt,
	})
	require.NoError(t, err)

	got, err := s.getCatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, "tuna", got.FishType)
	assert.Equal(t, "rare", got.FishRarity)
	assert.Equal(t, int64(50), got.ExpGained)
	assert.Equal(t, caughtAt, got.CaughtAt)
}

func TestCountCatchesSince(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	alice := createTestUser(t, s, "alice")

	appendTestCatch(t, s, alice.ID, nowUTC().Add(-48*time.Hour))
	appendTestCatch(t, s, alice.ID, nowUTC())
	appendTestCatch(t, s, alice.ID, nowUTC())

	n, err := s.CountCatchesSince(ctx, nowUTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestGetUserStats(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	// bob out-fishes alice this month
	for i := 0; i < 3; i++ {
		appendTestCatch(t, s, bob.ID, nowUTC())
	}
	appendTestCatch(t, s, alice.ID, nowUTC())
	// alice has history from a previous month
	appendTestCatch(t, s, alice.ID, nowUTC().AddDate(0, -2, 0))
	appendTestCatch(t, s, alice.ID, nowUTC().AddDate(0, -2, 0))
	appendTestCatch(t, s, alice.ID, nowUTC().AddDate(0, -2, 0))

	stats, err := s.GetUserStats(ctx, alice.LicenseKey)
	require.NoError(t, err)
	assert.Equal(t, "alice", stats.Username)
	assert.Equal(t, int64(4), stats.TotalCatches)
	assert.Equal(t, int64(1), stats.MonthCatches)
	assert.Equal(t, int64(2), stats.RankMonthly)
	assert.Equal(t, int64(1), stats.RankAlltime)
}

func TestGetUserStats_UnknownLicense(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetUserStats(context.Background(), "KEY-nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMonthlyRanking(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")
	carol := createTestUser(t, s, "carol")

	for i := 0; i < 3; i++ {
		appendTestCatch(t, s, bob.ID, nowUTC())
	}
	for i := 0; i < 2; i++ {
		appendTestCatch(t, s, alice.ID, nowUTC())
	}
	// carol only fished last month; she must not appear
	appendTestCatch(t, s, carol.ID, nowUTC().AddDate(0, -1, 0))

	ranking, err := s.MonthlyRanking(ctx, 5)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, "bob", ranking[0].Username)
	assert.Equal(t, int64(1), ranking[0].Rank)
	assert.Equal(t, int64(3), ranking[0].Catches)
	assert.Equal(t, "alice", ranking[1].Username)
	assert.Equal(t, int64(2), ranking[1].Rank)
}

func TestAlltimeRanking_Limit(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"u1", "u2", "u3"} {
		u := createTestUser(t, s, name)
		appendTestCatch(t, s, u.ID, nowUTC())
	}

	ranking, err := s.AlltimeRanking(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, ranking, 2)
}
