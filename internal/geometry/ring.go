// CellSentry - Cellular Threat Intelligence and Rogue Base Station Detection
// Copyright 2026 RF Watch Project
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rfwatch/cellsentry

package geometry

import "math"

// earthRadiusM is the mean Earth radius used for spherical geometry.
const earthRadiusM = 6371000.0

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RingCoordinates returns n points evenly spaced by bearing on the circle
// of the given radius around the center, computed with the great-circle
// destination formula, plus the first point repeated to close the ring
// (n+1 points total). A radius <= 0 yields the single center point,
// unclosed.
func RingCoordinates(lat, lon, radiusM float64, n int) []Coordinate {
	if radiusM <= 0 {
		return []Coordinate{{Lat: lat, Lon: lon}}
	}
	if n < 3 {
		n = 3
	}

	latRad := lat * math.Pi / 180
	lonRad := lon * math.Pi / 180
	angular := radiusM / earthRadiusM

	sinLat := math.Sin(latRad)
	cosLat := math.Cos(latRad)
	sinAng := math.Sin(angular)
	cosAng := math.Cos(angular)

	ring := make([]Coordinate, 0, n+1)
	for i := 0; i < n; i++ {
		bearing := 2 * math.Pi * float64(i) / float64(n)

		destLat := math.Asin(sinLat*cosAng + cosLat*sinAng*math.Cos(bearing))
		destLon := lonRad + math.Atan2(
			math.Sin(bearing)*sinAng*cosLat,
			cosAng-sinLat*math.Sin(destLat),
		)

		ring = append(ring, Coordinate{
			Lat: destLat * 180 / math.Pi,
			Lon: normalizeLon(destLon * 180 / math.Pi),
		})
	}

	// Close the ring for polygon rendering.
	ring = append(ring, ring[0])
	return ring
}

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM / 1000 * c
}

// normalizeLon wraps a longitude into [-180, 180].
func normalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
