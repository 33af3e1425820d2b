package geolocation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"travelwatch/models"

	"github.com/oschwald/geoip2-golang"
	"github.com/rs/zerolog"
)

// ErrResolutionFailed indicates that no location could be determined for an
// address. It is a normal, expected outcome and is folded into the
// geolocation-failure verdict, never escalated.
var ErrResolutionFailed = errors.New("failed to geolocate address")

// Resolver maps a network address to a geographic location.
type Resolver interface {
	Resolve(ctx context.Context, ip string) (*models.Location, error)
	Close() error
}

// IPAPIService resolves addresses against the ip-api.com JSON endpoint.
// The upstream is free, unauthenticated and unreliable; failures and
// timeouts are expected outcomes.
type IPAPIService struct {
	BaseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewIPAPIService creates a new IPAPIService with the given lookup timeout
func NewIPAPIService(timeout time.Duration, logger zerolog.Logger) *IPAPIService {
	return &IPAPIService{
		BaseURL: "http://ip-api.com/json",
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Country string  `json:"country"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Resolve looks up an address on ip-api.com
func (s *IPAPIService) Resolve(ctx context.Context, ip string) (*models.Location, error) {
	url := fmt.Sprintf("%s/%s?fields=status,message,country,city,lat,lon", s.BaseURL, ip)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error().Err(err).Str("ip", ip).Msg("geolocation lookup failed")
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error().Int("status", resp.StatusCode).Str("ip", ip).Msg("geolocation lookup returned non-OK status")
		return nil, fmt.Errorf("%w: unexpected status %d", ErrResolutionFailed, resp.StatusCode)
	}

	var data ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	if data.Status == "fail" {
		s.logger.Error().Str("ip", ip).Str("reason", data.Message).Msg("geolocation lookup rejected address")
		return nil, fmt.Errorf("%w: %s", ErrResolutionFailed, data.Message)
	}

	loc := &models.Location{
		Country:   data.Country,
		City:      data.City,
		Latitude:  data.Lat,
		Longitude: data.Lon,
	}
	if loc.Country == "" {
		loc.Country = "Unknown"
	}
	if loc.City == "" {
		loc.City = "Unknown"
	}

	return loc, nil
}

// Close is a no-op for the HTTP resolver
func (s *IPAPIService) Close() error {
	return nil
}

// MMDBService resolves addresses from a local MaxMind GeoLite2 City database,
// for deployments that cannot reach ip-api.com.
type MMDBService struct {
	reader *geoip2.Reader
}

// NewMMDBService opens the MaxMind database at the given path
func NewMMDBService(path string) (*MMDBService, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open GeoIP database: %w", err)
	}
	return &MMDBService{reader: reader}, nil
}

// Resolve looks up an address in the local database
func (s *MMDBService) Resolve(ctx context.Context, ip string) (*models.Location, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: invalid address %q", ErrResolutionFailed, ip)
	}

	record, err := s.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	country := record.Country.Names["en"]
	if country == "" {
		// Private ranges and unallocated space have no country data
		return nil, fmt.Errorf("%w: no location data for %s", ErrResolutionFailed, ip)
	}

	city := record.City.Names["en"]
	if city == "" {
		city = "Unknown"
	}

	return &models.Location{
		Country:   country,
		City:      city,
		Latitude:  record.Location.Latitude,
		Longitude: record.Location.Longitude,
	}, nil
}

// Close closes the MaxMind database handle
func (s *MMDBService) Close() error {
	return s.reader.Close()
}
