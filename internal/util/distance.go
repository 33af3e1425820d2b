package util

import (
	"fmt"

	"github.com/jftuga/geodist"
)

// DistanceKm computes the geodesic distance in kilometers between two
// coordinate pairs using Vincenty's formulae on the WGS-84 ellipsoid.
// Vincenty can fail to converge for near-antipodal points; that error is
// returned to the caller rather than falling back to an approximation.
func DistanceKm(lat1, lon1, lat2, lon2 float64) (float64, error) {
	from := geodist.Coord{Lat: lat1, Lon: lon1}
	to := geodist.Coord{Lat: lat2, Lon: lon2}

	_, km, err := geodist.VincentyDistance(from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to compute geodesic distance: %w", err)
	}
	return km, nil
}
