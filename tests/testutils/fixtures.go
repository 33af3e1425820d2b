package testutils

import (
	"travelwatch/models"
)

// Locations spaced along the equator. One degree of longitude there is
// roughly 111.32 km, which keeps distances in tests easy to reason about.
var (
	LagosLocation = models.Location{
		Country:   "Nigeria",
		City:      "Lagos",
		Latitude:  0,
		Longitude: 3,
	}

	AccraLocation = models.Location{
		Country:   "Ghana",
		City:      "Accra",
		Latitude:  0,
		Longitude: 0,
	}
)

// NewLoginRecord builds a login observation for the given user and location.
func NewLoginRecord(user, ip string, loc models.Location, timestamp string) *models.LoginRecord {
	return &models.LoginRecord{
		User:      user,
		IP:        ip,
		Country:   loc.Country,
		City:      loc.City,
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timestamp: timestamp,
	}
}
