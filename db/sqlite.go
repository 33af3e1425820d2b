package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ConnectToSQLite initializes and returns a SQLite connection
func ConnectToSQLite(dbPath string) (*sql.DB, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for SQLite: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return db, nil
}

// InitializeSchema creates all the necessary tables if they don't exist
func InitializeSchema(db *sql.DB) error {
	// Login history table: the event timestamp is stored in the string form
	// it arrived in; created_at records insertion time for auditing only.
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS login_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user TEXT NOT NULL,
		ip TEXT NOT NULL,
		country TEXT NOT NULL,
		city TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		timestamp TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create login_history table: %w", err)
	}

	// Index for most-recent lookup and eviction selection
	_, err = db.Exec(`
	CREATE INDEX IF NOT EXISTS idx_user_timestamp
	ON login_history(user, timestamp DESC)`)
	if err != nil {
		return fmt.Errorf("failed to create login_history index: %w", err)
	}

	// Geolocation cache, keyed by network address
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS geolocation_cache (
		ip TEXT PRIMARY KEY,
		country TEXT NOT NULL,
		city TEXT NOT NULL,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create geolocation_cache table: %w", err)
	}

	return nil
}
