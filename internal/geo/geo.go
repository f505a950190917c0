// Package geo provides great-circle distance math over coordinates supplied as
// decimal strings. Coordinates cross the API boundary as strings and are parsed
// to float64 only here.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate marks a latitude/longitude that is not a number or is
// outside the valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ParseLatitude parses a decimal-string latitude and range-checks it.
func ParseLatitude(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: latitude %q", ErrInvalidCoordinate, raw)
	}
	if v < -90 || v > 90 {
		return 0, fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, v)
	}
	return v, nil
}

// ParseLongitude parses a decimal-string longitude and range-checks it.
func ParseLongitude(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: longitude %q", ErrInvalidCoordinate, raw)
	}
	if v < -180 || v > 180 {
		return 0, fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, v)
	}
	return v, nil
}

// ParsePoint parses a latitude/longitude string pair.
func ParsePoint(lat, lon string) (float64, float64, error) {
	latV, err := ParseLatitude(lat)
	if err != nil {
		return 0, 0, err
	}
	lonV, err := ParseLongitude(lon)
	if err != nil {
		return 0, 0, err
	}
	return latV, lonV, nil
}

// DistanceKm returns the haversine distance in kilometres between two points
// given as decimal-string coordinate pairs. It is pure and symmetric:
// DistanceKm(a, b) == DistanceKm(b, a), and zero for identical points.
func DistanceKm(latA, lonA, latB, lonB string) (float64, error) {
	lat1, lon1, err := ParsePoint(latA, lonA)
	if err != nil {
		return 0, err
	}
	lat2, lon2, err := ParsePoint(latB, lonB)
	if err != nil {
		return 0, err
	}
	return haversineKm(lat1, lon1, lat2, lon2), nil
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return EarthRadiusKm * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
