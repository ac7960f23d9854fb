package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func newTestGoogle(t *testing.T, body string) *GoogleGeocoder {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "country:BR", r.URL.Query().Get("components"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	g, err := NewGoogleGeocoder("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return g
}

func TestGoogleGeocoderSuccess(t *testing.T) {
	g := newTestGoogle(t, `{"status":"OK","results":[{"geometry":{"location":{"lat":-22.9056,"lng":-47.0608}}}]}`)

	c, err := g.Geocode(context.Background(), ports.GeocodeRequest{Address: "Rua das Flores 10", City: "Campinas", State: "SP"})
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: -22.9056, Lon: -47.0608}, c)
}

func TestGoogleGeocoderZeroResults(t *testing.T) {
	g := newTestGoogle(t, `{"status":"ZERO_RESULTS","results":[]}`)

	_, err := g.Geocode(context.Background(), ports.GeocodeRequest{Address: "nowhere"})
	require.ErrorIs(t, err, domain.ErrGeocodeNotFound)
}

func TestGoogleGeocoderDenied(t *testing.T) {
	g := newTestGoogle(t, `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`)

	_, err := g.Geocode(context.Background(), ports.GeocodeRequest{Address: "x"})
	require.ErrorIs(t, err, domain.ErrGeocodeUnavailable)
}

func TestGoogleGeocoderErrorMentioningZeroResultsIsUnavailable(t *testing.T) {
	g := newTestGoogle(t, `{"status":"INVALID_REQUEST","error_message":"components invalid, expected ZERO_RESULTS or OK","results":[]}`)

	_, err := g.Geocode(context.Background(), ports.GeocodeRequest{Address: "x"})
	require.ErrorIs(t, err, domain.ErrGeocodeUnavailable)
	assert.NotErrorIs(t, err, domain.ErrGeocodeNotFound)
}

func TestNewGoogleGeocoderRequiresKey(t *testing.T) {
	_, err := NewGoogleGeocoder("")
	assert.Error(t, err)
}
