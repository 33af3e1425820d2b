package geolocation

import (
	"context"
	"errors"
	"time"

	"travelwatch/db"
	"travelwatch/models"

	"github.com/rs/zerolog"
)

// CachedResolver wraps another resolver with the SQLite geolocation cache.
// Cache faults never fail a lookup; they fall through to the inner resolver.
type CachedResolver struct {
	inner  Resolver
	cache  *db.GeolocationCacheRepository
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedResolver creates a caching wrapper around the given resolver
func NewCachedResolver(inner Resolver, cache *db.GeolocationCacheRepository, ttl time.Duration, logger zerolog.Logger) *CachedResolver {
	return &CachedResolver{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Resolve returns the cached location for the address when present,
// otherwise resolves through the inner resolver and caches the result.
func (r *CachedResolver) Resolve(ctx context.Context, ip string) (*models.Location, error) {
	loc, err := r.cache.FindByIP(ctx, ip)
	if err == nil {
		return loc, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		r.logger.Warn().Err(err).Str("ip", ip).Msg("geolocation cache read failed")
	}

	loc, err = r.inner.Resolve(ctx, ip)
	if err != nil {
		return nil, err
	}

	if cerr := r.cache.Upsert(ctx, ip, loc, r.ttl); cerr != nil {
		r.logger.Warn().Err(cerr).Str("ip", ip).Msg("geolocation cache write failed")
	}

	return loc, nil
}

// Close closes the inner resolver
func (r *CachedResolver) Close() error {
	return r.inner.Close()
}
