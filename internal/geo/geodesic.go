// Package geo holds the pure geodesic helpers and the static coordinate
// tables used by the resolver cascade.
package geo

import (
	"errors"
	"fmt"
	"math"

	"travel-route-service/internal/domain"
)

// EarthRadiusKm is the mean radius of Earth in kilometers.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine great-circle distance between a and b.
func DistanceKm(a, b domain.Coordinates) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, fmt.Errorf("distance: origin: %w", err)
	}
	if err := b.Validate(); err != nil {
		return 0, fmt.Errorf("distance: destination: %w", err)
	}

	dLat := degToRad(b.Lat - a.Lat)
	dLon := degToRad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat +
		math.Cos(degToRad(a.Lat))*math.Cos(degToRad(b.Lat))*sinLon*sinLon

	// Rounding can push h marginally above 1 for antipodal points.
	h = math.Min(1, h)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h)), nil
}

// Centroid is the arithmetic mean of latitudes and longitudes. It is not
// geodesically exact; regional spans are small enough for it.
func Centroid(points []domain.Coordinates) (domain.Coordinates, error) {
	if len(points) == 0 {
		return domain.Coordinates{}, fmt.Errorf("centroid: no points: %w", domain.ErrPreconditionViolated)
	}

	var lat, lon float64
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return domain.Coordinates{}, fmt.Errorf("centroid: %w", err)
		}
		lat += p.Lat
		lon += p.Lon
	}

	n := float64(len(points))
	return domain.Coordinates{Lat: lat / n, Lon: lon / n}, nil
}

// Bounds returns the smallest lat/lon box containing every point.
func Bounds(points []domain.Coordinates) (domain.Box, error) {
	if len(points) == 0 {
		return domain.Box{}, errors.New("bounds: no points")
	}

	box := domain.Box{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		box.Min.Lat = math.Min(box.Min.Lat, p.Lat)
		box.Min.Lon = math.Min(box.Min.Lon, p.Lon)
		box.Max.Lat = math.Max(box.Max.Lat, p.Lat)
		box.Max.Lon = math.Max(box.Max.Lon, p.Lon)
	}
	return box, nil
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
