package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates in signed decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate reports ErrInvalidCoordinate for NaN, infinite or out-of-range values.
func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return fmt.Errorf("coordinates (%v, %v): %w", c.Lat, c.Lon, ErrInvalidCoordinate)
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("coordinates (%v, %v) out of range: %w", c.Lat, c.Lon, ErrInvalidCoordinate)
	}
	return nil
}
