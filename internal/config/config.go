package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseType string

const (
	MongoDB DatabaseType = "mongodb"
	SQLite  DatabaseType = "sqlite"
)

type GeoProvider string

const (
	// IPAPI resolves addresses against the ip-api.com HTTP endpoint
	IPAPI GeoProvider = "ipapi"
	// MMDB resolves addresses from a local MaxMind GeoLite2 City database
	MMDB GeoProvider = "mmdb"
)

type Config struct {
	Port     string
	LogLevel string

	// Detection thresholds, fixed at startup
	TimeWindowMinutes float64
	MaxRecordsPerUser int
	MinDistanceKm     float64

	DatabaseType DatabaseType
	// MongoDB config
	MongoURI string
	// SQLite config
	SQLitePath string
	// Common configs
	DatabaseName string

	// Geolocation config
	GeoProvider GeoProvider
	GeoIPDBPath string
	GeoTimeout  time.Duration
	GeoCacheTTL time.Duration

	// Optional GELF event shipping ("host:port", empty disables)
	GELFAddr string
}

func LoadConfig() (*Config, error) {
	// A .env file is optional; environment variables win either way
	_ = godotenv.Load()

	config := &Config{
		Port:              getenv("PORT", "8000"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		TimeWindowMinutes: getenvFloat("TIME_WINDOW_MINUTES", 5),
		MaxRecordsPerUser: getenvInt("MAX_RECORDS_PER_USER", 10),
		MinDistanceKm:     getenvFloat("MIN_DISTANCE_KM", 100),
		DatabaseName:      getenv("DATABASE_NAME", "impossible_travel"),
		GeoIPDBPath:       getenv("GEOIP_DB_PATH", ""),
		GeoTimeout:        time.Duration(getenvInt("GEO_TIMEOUT_SECONDS", 10)) * time.Second,
		GeoCacheTTL:       time.Duration(getenvInt("GEO_CACHE_TTL_HOURS", 24)) * time.Hour,
		GELFAddr:          getenv("GELF_ADDR", ""),
	}

	if config.MaxRecordsPerUser < 1 {
		return nil, fmt.Errorf("MAX_RECORDS_PER_USER must be at least 1")
	}

	dbType := getenv("DATABASE_TYPE", string(SQLite))
	config.DatabaseType = DatabaseType(dbType)

	switch config.DatabaseType {
	case MongoDB:
		mongoURI := os.Getenv("MONGODB_URI")
		if mongoURI == "" {
			return nil, fmt.Errorf("MONGODB_URI is not set")
		}
		config.MongoURI = mongoURI
	case SQLite:
		sqlitePath := os.Getenv("SQLITE_PATH")
		if sqlitePath == "" {
			sqlitePath = filepath.Join("data", fmt.Sprintf("%s.db", config.DatabaseName))
		}
		config.SQLitePath = sqlitePath
	default:
		return nil, fmt.Errorf("unsupported DATABASE_TYPE: %s", dbType)
	}

	provider := getenv("GEO_PROVIDER", string(IPAPI))
	config.GeoProvider = GeoProvider(provider)

	switch config.GeoProvider {
	case IPAPI:
	case MMDB:
		if config.GeoIPDBPath == "" {
			return nil, fmt.Errorf("GEOIP_DB_PATH is not set but GEO_PROVIDER is mmdb")
		}
	default:
		return nil, fmt.Errorf("unsupported GEO_PROVIDER: %s", provider)
	}

	return config, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
