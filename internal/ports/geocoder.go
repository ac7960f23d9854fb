package ports

import (
	"context"
	"travel-route-service/internal/domain"
)

// Address-level geocoding request for a single client location.
type GeocodeRequest struct {
	ClientID int64
	Address  string
	City     string
	State    string
}

// Contract for the external geocoding collaborator.
type Geocoder interface {
	// Return an exact coordinate, domain.ErrGeocodeNotFound when the
	// address has no match, or domain.ErrGeocodeUnavailable on transport failure.
	Geocode(ctx context.Context, req GeocodeRequest) (domain.Coordinates, error)
}
