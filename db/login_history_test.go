package db_test

import (
	"context"
	"fmt"
	"testing"

	"travelwatch/db"
	"travelwatch/models"
	"travelwatch/tests/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLoginRepo(t *testing.T) (db.LoginHistoryRepository, func()) {
	factory, cleanup := testutils.SetupTestRepositoryFactory(t)
	return factory.NewLoginHistoryRepository(), cleanup
}

func TestAppendCapsHistoryPerUser(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	const maxRecords = 10
	for i := 0; i < 15; i++ {
		record := testutils.NewLoginRecord(
			"alice@example.com", "102.78.106.220", testutils.LagosLocation,
			fmt.Sprintf("2025-12-10T10:%02d:00", i))
		require.NoError(t, repo.Append(ctx, record, maxRecords))
	}

	records, err := repo.Recent(ctx, "alice@example.com", 100)
	require.NoError(t, err)
	assert.Len(t, records, maxRecords)

	// The five oldest event timestamps are gone; the newest is first
	assert.Equal(t, "2025-12-10T10:14:00", records[0].Timestamp)
	assert.Equal(t, "2025-12-10T10:05:00", records[len(records)-1].Timestamp)
}

func TestAppendEvictsOldestByTimestampNotInsertionOrder(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	// Insert newest-first so insertion order disagrees with event order
	timestamps := []string{
		"2025-12-10T10:30:00",
		"2025-12-10T10:20:00",
		"2025-12-10T10:10:00",
	}
	for _, ts := range timestamps {
		record := testutils.NewLoginRecord("bob@example.com", "1.2.3.4", testutils.AccraLocation, ts)
		require.NoError(t, repo.Append(ctx, record, 2))
	}

	records, err := repo.Recent(ctx, "bob@example.com", 100)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// 10:10 arrived last but is oldest by event time, so it was evicted
	assert.Equal(t, "2025-12-10T10:30:00", records[0].Timestamp)
	assert.Equal(t, "2025-12-10T10:20:00", records[1].Timestamp)
}

func TestAppendBreaksTimestampTiesByInsertionOrder(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	const ts = "2025-12-10T10:00:00"
	for i := 0; i < 3; i++ {
		record := testutils.NewLoginRecord(
			"carol@example.com", fmt.Sprintf("10.0.0.%d", i), testutils.LagosLocation, ts)
		require.NoError(t, repo.Append(ctx, record, 2))
	}

	records, err := repo.Recent(ctx, "carol@example.com", 100)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// All timestamps equal: the first-inserted record is the eviction victim
	assert.Equal(t, "10.0.0.2", records[0].IP)
	assert.Equal(t, "10.0.0.1", records[1].IP)
}

func TestAppendIsolatesUsers(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := testutils.NewLoginRecord(
			"dave@example.com", "1.1.1.1", testutils.LagosLocation,
			fmt.Sprintf("2025-12-10T11:%02d:00", i))
		require.NoError(t, repo.Append(ctx, record, 3))
	}
	other := testutils.NewLoginRecord("erin@example.com", "2.2.2.2", testutils.AccraLocation, "2025-12-10T11:00:00")
	require.NoError(t, repo.Append(ctx, other, 3))

	daveRecords, err := repo.Recent(ctx, "dave@example.com", 100)
	require.NoError(t, err)
	assert.Len(t, daveRecords, 3)

	erinRecords, err := repo.Recent(ctx, "erin@example.com", 100)
	require.NoError(t, err)
	assert.Len(t, erinRecords, 1)
}

func TestMostRecent(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("returns ErrNotFound for unknown user", func(t *testing.T) {
		_, err := repo.MostRecent(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, db.ErrNotFound)
	})

	t.Run("returns greatest event timestamp regardless of insertion order", func(t *testing.T) {
		newer := testutils.NewLoginRecord("frank@example.com", "3.3.3.3", testutils.LagosLocation, "2025-12-10T12:30:00")
		older := testutils.NewLoginRecord("frank@example.com", "4.4.4.4", testutils.AccraLocation, "2025-12-10T12:00:00")
		require.NoError(t, repo.Append(ctx, newer, 10))
		require.NoError(t, repo.Append(ctx, older, 10))

		record, err := repo.MostRecent(ctx, "frank@example.com")
		require.NoError(t, err)
		assert.Equal(t, "2025-12-10T12:30:00", record.Timestamp)
		assert.Equal(t, "3.3.3.3", record.IP)
	})

	t.Run("breaks timestamp ties by latest insertion", func(t *testing.T) {
		first := testutils.NewLoginRecord("grace@example.com", "5.5.5.5", testutils.LagosLocation, "2025-12-10T13:00:00")
		second := testutils.NewLoginRecord("grace@example.com", "6.6.6.6", testutils.AccraLocation, "2025-12-10T13:00:00")
		require.NoError(t, repo.Append(ctx, first, 10))
		require.NoError(t, repo.Append(ctx, second, 10))

		record, err := repo.MostRecent(ctx, "grace@example.com")
		require.NoError(t, err)
		assert.Equal(t, "6.6.6.6", record.IP)
	})
}

func TestAppendPreservesRecordFields(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	record := &models.LoginRecord{
		User:      "henry@example.com",
		IP:        "102.78.106.220",
		Country:   "Nigeria",
		City:      "Lagos",
		Latitude:  6.4474,
		Longitude: 3.3903,
		Timestamp: "2025-12-10T10:17:54.123456",
	}
	require.NoError(t, repo.Append(ctx, record, 10))

	stored, err := repo.MostRecent(ctx, "henry@example.com")
	require.NoError(t, err)
	assert.Equal(t, record.User, stored.User)
	assert.Equal(t, record.IP, stored.IP)
	assert.Equal(t, record.Country, stored.Country)
	assert.Equal(t, record.City, stored.City)
	assert.Equal(t, record.Latitude, stored.Latitude)
	assert.Equal(t, record.Longitude, stored.Longitude)
	assert.Equal(t, record.Timestamp, stored.Timestamp)
}

func TestPurgeAll(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		record := testutils.NewLoginRecord(
			fmt.Sprintf("user%d@example.com", i%2), "7.7.7.7", testutils.LagosLocation,
			fmt.Sprintf("2025-12-10T14:%02d:00", i))
		require.NoError(t, repo.Append(ctx, record, 10))
	}

	count, err := repo.PurgeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecords)
	assert.Equal(t, int64(0), stats.UniqueUsers)

	// Purging an empty store reports zero deletions
	count, err = repo.PurgeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestStats(t *testing.T) {
	repo, cleanup := setupLoginRepo(t)
	defer cleanup()
	ctx := context.Background()

	users := []string{"a@example.com", "a@example.com", "b@example.com"}
	for i, user := range users {
		record := testutils.NewLoginRecord(user, "8.8.8.8", testutils.AccraLocation,
			fmt.Sprintf("2025-12-10T15:%02d:00", i))
		require.NoError(t, repo.Append(ctx, record, 10))
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRecords)
	assert.Equal(t, int64(2), stats.UniqueUsers)
}
