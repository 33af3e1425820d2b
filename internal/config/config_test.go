package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "TIME_WINDOW_MINUTES", "MAX_RECORDS_PER_USER",
		"MIN_DISTANCE_KM", "DATABASE_TYPE", "MONGODB_URI", "SQLITE_PATH",
		"DATABASE_NAME", "GEO_PROVIDER", "GEOIP_DB_PATH", "GEO_TIMEOUT_SECONDS",
		"GEO_CACHE_TTL_HOURS", "GELF_ADDR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, 5.0, cfg.TimeWindowMinutes)
	assert.Equal(t, 10, cfg.MaxRecordsPerUser)
	assert.Equal(t, 100.0, cfg.MinDistanceKm)
	assert.Equal(t, SQLite, cfg.DatabaseType)
	assert.Equal(t, "impossible_travel", cfg.DatabaseName)
	assert.Equal(t, "data/impossible_travel.db", cfg.SQLitePath)
	assert.Equal(t, IPAPI, cfg.GeoProvider)
	assert.Empty(t, cfg.GELFAddr)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("TIME_WINDOW_MINUTES", "2.5")
	t.Setenv("MAX_RECORDS_PER_USER", "25")
	t.Setenv("MIN_DISTANCE_KM", "50")
	t.Setenv("SQLITE_PATH", "/tmp/travel.db")
	t.Setenv("GELF_ADDR", "graylog:12201")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2.5, cfg.TimeWindowMinutes)
	assert.Equal(t, 25, cfg.MaxRecordsPerUser)
	assert.Equal(t, 50.0, cfg.MinDistanceKm)
	assert.Equal(t, "/tmp/travel.db", cfg.SQLitePath)
	assert.Equal(t, "graylog:12201", cfg.GELFAddr)
}

func TestLoadConfigMongoRequiresURI(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_TYPE", "mongodb")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, MongoDB, cfg.DatabaseType)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
}

func TestLoadConfigRejectsUnsupportedValues(t *testing.T) {
	t.Run("database type", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_TYPE", "postgres")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "unsupported DATABASE_TYPE")
	})

	t.Run("geo provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEO_PROVIDER", "whois")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "unsupported GEO_PROVIDER")
	})

	t.Run("zero history cap", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAX_RECORDS_PER_USER", "0")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "MAX_RECORDS_PER_USER")
	})
}

func TestLoadConfigMMDBRequiresPath(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEO_PROVIDER", "mmdb")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "GEOIP_DB_PATH")

	t.Setenv("GEOIP_DB_PATH", "/var/lib/geoip/GeoLite2-City.mmdb")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, MMDB, cfg.GeoProvider)
}
