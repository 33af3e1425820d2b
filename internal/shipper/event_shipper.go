package shipper

import (
	"fmt"
	"os"
	"time"

	"travelwatch/models"

	"github.com/rs/zerolog"
	"gopkg.in/Graylog2/go-gelf.v2/gelf"
)

// EventShipper forwards impossible-travel alerts to a Graylog GELF TCP
// input. Shipping is best effort: delivery failures are logged and dropped,
// never surfaced to the request path.
type EventShipper struct {
	writer   *gelf.TCPWriter
	hostname string
	logger   zerolog.Logger
}

// NewEventShipper connects a GELF TCP writer to the given host:port address
func NewEventShipper(addr string, logger zerolog.Logger) (*EventShipper, error) {
	writer, err := gelf.NewTCPWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "travelwatch"
	}

	return &EventShipper{
		writer:   writer,
		hostname: hostname,
		logger:   logger,
	}, nil
}

// ShipVerdict sends one detection verdict as a GELF message
func (s *EventShipper) ShipVerdict(verdict *models.TravelVerdict) error {
	extra := map[string]interface{}{
		"_integration": "impossible-travel-detection",
		"_user":        verdict.User,
		"_current_ip":  verdict.CurrentIP,
		"_country":     verdict.CurrentLocation.Country,
		"_city":        verdict.CurrentLocation.City,
		"_timestamp":   verdict.CurrentTimestamp,
	}
	if verdict.DistanceKm != nil {
		extra["_distance_km"] = *verdict.DistanceKm
	}
	if verdict.TimeDifferenceMinutes != nil {
		extra["_time_difference_minutes"] = *verdict.TimeDifferenceMinutes
	}

	message := &gelf.Message{
		Version:  "1.1",
		Host:     s.hostname,
		Short:    verdict.Message,
		TimeUnix: float64(time.Now().UnixNano()) / float64(time.Second),
		Level:    4, // syslog warning
		Extra:    extra,
	}

	if err := s.writer.WriteMessage(message); err != nil {
		return fmt.Errorf("failed to ship detection event: %w", err)
	}
	return nil
}

// ShipAsync ships a verdict on its own goroutine, logging failures
func (s *EventShipper) ShipAsync(verdict *models.TravelVerdict) {
	go func() {
		if err := s.ShipVerdict(verdict); err != nil {
			s.logger.Error().Err(err).Str("user", verdict.User).Msg("event shipping failed")
		}
	}()
}

// Close closes the GELF writer
func (s *EventShipper) Close() error {
	return s.writer.Close()
}
