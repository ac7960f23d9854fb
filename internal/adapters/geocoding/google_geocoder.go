package geocoding

import (
	"context"
	"errors"
	"fmt"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"

	"googlemaps.github.io/maps"
)

// GoogleGeocoder implements ports.Geocoder with the Google Maps
// Geocoding API, restricted to one country.
type GoogleGeocoder struct {
	client  *maps.Client
	country string
}

func NewGoogleGeocoder(apiKey string, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google geocoder: new client: %w", err)
	}

	return &GoogleGeocoder{client: client, country: "BR"}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, r ports.GeocodeRequest) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "google.Geocode")(&err)

	text := searchText(r)
	if text == "" {
		return domain.Coordinates{}, fmt.Errorf("google geocode: empty address: %w", domain.ErrGeocodeNotFound)
	}

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address:    text,
		Components: map[maps.Component]string{maps.ComponentCountry: g.country},
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w: %w", text, domain.ErrGeocodeUnavailable, err)
	}
	if len(results) == 0 {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w", text, domain.ErrGeocodeNotFound)
	}

	loc := results[0].Geometry.Location
	c := domain.Coordinates{Lat: loc.Lat, Lon: loc.Lng}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("google geocode %q: %w", text, err)
	}
	return c, nil
}
