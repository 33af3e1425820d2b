package testutils

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"travelwatch/db"
	"travelwatch/internal/config"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func SetupTestDatabase(t *testing.T) (*sql.DB, func()) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	testDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000")
	require.NoError(t, err)

	err = db.InitializeSchema(testDB)
	require.NoError(t, err)

	cleanup := func() {
		testDB.Close()
		os.RemoveAll(tempDir)
	}

	return testDB, cleanup
}

func SetupTestRepositoryFactory(t *testing.T) (*db.RepositoryFactory, func()) {
	testDB, cleanup := SetupTestDatabase(t)
	factory := db.NewRepositoryFactory(testDB, nil, "travelwatch_test")
	return factory, cleanup
}

func GetTestConfig() *config.Config {
	return &config.Config{
		Port:              "8000",
		DatabaseType:      config.SQLite,
		SQLitePath:        ":memory:",
		DatabaseName:      "travelwatch_test",
		GeoProvider:       config.IPAPI,
		TimeWindowMinutes: 5,
		MaxRecordsPerUser: 10,
		MinDistanceKm:     100,
	}
}
