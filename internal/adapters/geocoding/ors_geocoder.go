package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"
	"travel-route-service/internal/ports"
)

const orsBaseURL = "https://api.openrouteservice.org"

// ORSGeocoder implements ports.Geocoder with OpenRouteService
// (/geocode/search). It is safe for concurrent use.
type ORSGeocoder struct {
	session     *http.Client
	apiKey      string
	baseURL     string
	country     string
	maxAttempts int
	backoff     time.Duration
}

type ORSOption func(*ORSGeocoder)

// WithBaseURL points the geocoder at another ORS deployment.
func WithBaseURL(u string) ORSOption {
	return func(o *ORSGeocoder) { o.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry sets the attempt budget and the first backoff delay.
func WithRetry(maxAttempts int, backoff time.Duration) ORSOption {
	return func(o *ORSGeocoder) {
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

func NewORSGeocoder(apiKey string, opts ...ORSOption) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORSGeocoder{
		session:     &http.Client{Timeout: 10 * time.Second},
		apiKey:      apiKey,
		baseURL:     orsBaseURL,
		country:     "BR",
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Geocode resolves one address. An empty result set is
// domain.ErrGeocodeNotFound; everything else that goes wrong is
// domain.ErrGeocodeUnavailable.
func (o *ORSGeocoder) Geocode(ctx context.Context, r ports.GeocodeRequest) (_ domain.Coordinates, err error) {
	defer obs.Time(ctx, "ors.Geocode")(&err)

	text := searchText(r)
	if text == "" {
		return domain.Coordinates{}, fmt.Errorf("ors geocode: empty address: %w", domain.ErrGeocodeNotFound)
	}

	resp, err := o.getWithRetry(ctx, "/geocode/search", url.Values{
		"text":             {text},
		"boundary.country": {o.country},
		"size":             {"1"},
	})
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: %w: %w", text, domain.ErrGeocodeUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: unexpected status %d: %w", text, resp.StatusCode, domain.ErrGeocodeUnavailable)
	}

	var decoded geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: decode response: %w: %w", text, domain.ErrGeocodeUnavailable, err)
	}

	if len(decoded.Features) == 0 {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: %w", text, domain.ErrGeocodeNotFound)
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != 2 {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: invalid coordinate format: %w", text, domain.ErrGeocodeUnavailable)
	}

	c := domain.Coordinates{Lon: coords[0], Lat: coords[1]}
	if err := c.Validate(); err != nil {
		return domain.Coordinates{}, fmt.Errorf("ors geocode %q: %w", text, err)
	}
	return c, nil
}

// searchText joins the non-empty parts of the request, whitespace collapsed.
func searchText(r ports.GeocodeRequest) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{r.Address, r.City, r.State} {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
