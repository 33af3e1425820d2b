package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travelwatch/models"
)

// GeolocationCacheRepository stores resolved locations for network addresses
// so repeat logins from the same address skip the external lookup. Entries
// expire; expired rows are treated as missing.
type GeolocationCacheRepository struct {
	db *sql.DB
}

// NewGeolocationCacheRepository creates a new GeolocationCacheRepository
func NewGeolocationCacheRepository(db *sql.DB) *GeolocationCacheRepository {
	return &GeolocationCacheRepository{db: db}
}

// FindByIP retrieves cached location data for an address. Returns ErrNotFound
// for missing or expired entries.
func (r *GeolocationCacheRepository) FindByIP(ctx context.Context, ip string) (*models.Location, error) {
	query := `
		SELECT country, city, latitude, longitude
		FROM geolocation_cache
		WHERE ip = ? AND expires_at > ?
	`

	var loc models.Location
	err := r.db.QueryRowContext(ctx, query, ip, time.Now().UTC()).Scan(
		&loc.Country, &loc.City, &loc.Latitude, &loc.Longitude,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find cached geolocation: %w", err)
	}

	return &loc, nil
}

// Upsert stores location data for an address, replacing any prior entry.
func (r *GeolocationCacheRepository) Upsert(ctx context.Context, ip string, loc *models.Location, ttl time.Duration) error {
	now := time.Now().UTC()

	query := `
		INSERT OR REPLACE INTO geolocation_cache
		(ip, country, city, latitude, longitude, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		ip, loc.Country, loc.City, loc.Latitude, loc.Longitude, now, now.Add(ttl),
	)
	if err != nil {
		return fmt.Errorf("failed to cache geolocation: %w", err)
	}

	return nil
}

// CleanupExpired removes expired cache entries
func (r *GeolocationCacheRepository) CleanupExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM geolocation_cache WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired geolocation cache: %w", err)
	}
	return nil
}

// Close closes the repository (satisfies Repository interface)
func (r *GeolocationCacheRepository) Close() error {
	// The SQLite handle is owned by the login history repository
	return nil
}
