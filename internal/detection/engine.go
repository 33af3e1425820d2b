package detection

import (
	"fmt"
	"math"

	"travelwatch/internal/util"
	"travelwatch/models"
)

// Thresholds holds the process-wide detection settings, fixed at startup.
type Thresholds struct {
	// TimeWindowMinutes is the maximum elapsed time between two logins for
	// them to be considered suspicious together.
	TimeWindowMinutes float64

	// MinDistanceKm is the minimum separation for two same-country logins
	// to count as different locations. A country change counts as a
	// different location at any distance.
	MinDistanceKm float64
}

// Verdict messages for the terminal branches of the decision procedure.
const (
	msgGeolocationFailed = "Failed to geolocate IP address"
	msgInvalidTimestamp  = "Invalid timestamp format"
	msgFirstLogin        = "First login for this user"
	msgSameLocation      = "Login from same location as previous login"
	msgNormalTravel      = "Normal travel pattern"
)

// Evaluate runs the impossible-travel decision procedure for one login event.
//
// Branches are checked in order and each is terminal: geolocation failure
// (location == nil), unparseable timestamp, first login, same location, then
// the general two-point comparison. The second return value tells the caller
// whether the observation should be persisted; it is false only on the
// geolocation-failure and invalid-timestamp branches.
//
// Evaluate has no side effects. Anomalies inside the two-point comparison
// (e.g. a malformed stored timestamp) resolve to a not-detected verdict
// carrying the error text, never to a hard failure.
func Evaluate(user, ip, rawTimestamp string, location *models.Location, previous *models.LoginRecord, cfg Thresholds) (*models.TravelVerdict, bool) {
	verdict := &models.TravelVerdict{
		User:             user,
		CurrentIP:        ip,
		CurrentTimestamp: rawTimestamp,
	}

	if location == nil {
		verdict.CurrentLocation = models.UnknownLocation()
		verdict.Message = msgGeolocationFailed
		return verdict, false
	}
	verdict.CurrentLocation = *location

	current, err := util.ParseTimestamp(rawTimestamp)
	if err != nil {
		verdict.Message = msgInvalidTimestamp
		return verdict, false
	}

	if previous == nil {
		verdict.Message = msgFirstLogin
		return verdict, true
	}
	verdict.PreviousLogin = previous

	if previous.Country == location.Country && previous.City == location.City {
		verdict.Message = msgSameLocation
		return verdict, true
	}

	distanceKm, err := util.DistanceKm(previous.Latitude, previous.Longitude, location.Latitude, location.Longitude)
	if err != nil {
		verdict.Message = fmt.Sprintf("Error calculating travel metrics: %v", err)
		return verdict, true
	}

	previousTime, err := util.ParseTimestamp(previous.Timestamp)
	if err != nil {
		verdict.Message = fmt.Sprintf("Error calculating travel metrics: %v", err)
		return verdict, true
	}

	// Absolute difference: a login timestamped before the stored previous
	// one (clock skew, out-of-order delivery) is treated the same as a
	// later one.
	diffMinutes := math.Abs(current.Sub(previousTime).Minutes())

	// Thresholds compare against full precision; rounding is reporting only
	withinTimeWindow := diffMinutes <= cfg.TimeWindowMinutes
	differentLocation := previous.Country != location.Country || distanceKm >= cfg.MinDistanceKm
	detected := withinTimeWindow && differentLocation

	verdict.ImpossibleTravelDetected = detected

	roundedDistance := round2(distanceKm)
	roundedMinutes := round2(diffMinutes)
	verdict.DistanceKm = &roundedDistance
	verdict.TimeDifferenceMinutes = &roundedMinutes

	switch {
	case detected && previous.Country != location.Country:
		verdict.Message = fmt.Sprintf(
			"IMPOSSIBLE TRAVEL DETECTED: User logged in from %s and then from %s within %.2f minutes (%.2f km apart)",
			previous.Country, location.Country, diffMinutes, distanceKm)
	case detected:
		verdict.Message = fmt.Sprintf(
			"IMPOSSIBLE TRAVEL DETECTED: User logged in from %s, %s and then from %s, %s within %.2f minutes (%.2f km apart)",
			previous.City, previous.Country, location.City, location.Country, diffMinutes, distanceKm)
	default:
		verdict.Message = msgNormalTravel
	}

	return verdict, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
