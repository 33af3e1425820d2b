package detection

import (
	"context"
	"errors"
	"fmt"

	"travelwatch/db"
	"travelwatch/internal/geolocation"
	"travelwatch/internal/shipper"
	"travelwatch/models"

	"github.com/rs/zerolog"
)

// DetectionService orchestrates one analysis: resolve the address, read the
// user's most recent login, evaluate, persist the new observation, and ship
// an alert when travel was impossible.
//
// Decision-path anomalies (geolocation failure, malformed timestamps, first
// logins) resolve to a verdict; only storage faults return an error, wrapped
// in db.ErrUnavailable.
type DetectionService struct {
	repo       db.LoginHistoryRepository
	dbManager  *db.DBManager
	resolver   geolocation.Resolver
	shipper    *shipper.EventShipper
	cfg        Thresholds
	maxPerUser int
	logger     zerolog.Logger
}

// NewDetectionService creates a new DetectionService. The shipper may be nil.
func NewDetectionService(
	repo db.LoginHistoryRepository,
	dbManager *db.DBManager,
	resolver geolocation.Resolver,
	eventShipper *shipper.EventShipper,
	cfg Thresholds,
	maxRecordsPerUser int,
	logger zerolog.Logger,
) *DetectionService {
	return &DetectionService{
		repo:       repo,
		dbManager:  dbManager,
		resolver:   resolver,
		shipper:    eventShipper,
		cfg:        cfg,
		maxPerUser: maxRecordsPerUser,
		logger:     logger,
	}
}

// Analyze evaluates one login event for impossible travel
func (s *DetectionService) Analyze(ctx context.Context, user, ip, timestamp string) (*models.TravelVerdict, error) {
	location, err := s.resolver.Resolve(ctx, ip)
	if err != nil {
		// Resolver timeouts and upstream errors fold into the
		// geolocation-failure verdict
		location = nil
	}

	var previous *models.LoginRecord
	if location != nil {
		previous, err = s.repo.MostRecent(ctx, user)
		if err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("%w: %v", db.ErrUnavailable, err)
			}
			previous = nil
		}
	}

	verdict, persist := Evaluate(user, ip, timestamp, location, previous, s.cfg)

	if persist {
		record := &models.LoginRecord{
			User:      user,
			IP:        ip,
			Country:   verdict.CurrentLocation.Country,
			City:      verdict.CurrentLocation.City,
			Latitude:  verdict.CurrentLocation.Latitude,
			Longitude: verdict.CurrentLocation.Longitude,
			Timestamp: timestamp,
		}
		if err := s.dbManager.AppendLogin(s.repo, ctx, record, s.maxPerUser); err != nil {
			return nil, fmt.Errorf("%w: %v", db.ErrUnavailable, err)
		}
	}

	if verdict.ImpossibleTravelDetected {
		s.logger.Warn().
			Str("user", user).
			Str("ip", ip).
			Msg(verdict.Message)
		if s.shipper != nil {
			s.shipper.ShipAsync(verdict)
		}
	} else {
		s.logger.Info().
			Str("user", user).
			Str("ip", ip).
			Str("message", verdict.Message).
			Msg("login analyzed")
	}

	return verdict, nil
}

// Purge deletes all stored login history and returns the count removed
func (s *DetectionService) Purge(ctx context.Context) (int64, error) {
	count, err := s.dbManager.PurgeAll(s.repo, ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", db.ErrUnavailable, err)
	}
	s.logger.Warn().Int64("records_deleted", count).Msg("login history purged")
	return count, nil
}

// Stats reports aggregate counts over the login history
func (s *DetectionService) Stats(ctx context.Context) (*models.StatsResponse, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", db.ErrUnavailable, err)
	}
	return stats, nil
}
