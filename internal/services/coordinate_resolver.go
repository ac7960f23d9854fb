package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/geo"
	"travel-route-service/internal/ports"
)

// HomeCity is the company's reference location. Spelling variants are
// matched as substrings of the folded city name.
type HomeCity struct {
	Name     string   `yaml:"name"`
	Region   string   `yaml:"region"`
	Lat      float64  `yaml:"lat"`
	Lon      float64  `yaml:"lon"`
	Variants []string `yaml:"variants"`
}

func DefaultHomeCity() HomeCity {
	return HomeCity{
		Name:     "São Bernardo do Campo",
		Region:   "SP",
		Lat:      -23.7150,
		Lon:      -46.5550,
		Variants: []string{"sao bernardo", "s. bernardo", "s bernardo", "sbc"},
	}
}

func (h HomeCity) Coordinates() domain.Coordinates {
	return domain.Coordinates{Lat: h.Lat, Lon: h.Lon}
}

// markerStep is the per-client-id shift applied by markerOffset.
const markerStep = 0.002

// markerOffset shifts c by clientID*markerStep on both axes so that clients
// of the same city do not render as a single map point. It is a display
// offset only and carries no geodesic meaning.
func markerOffset(c domain.Coordinates, clientID int64) domain.Coordinates {
	off := float64(clientID) * markerStep
	return domain.Coordinates{Lat: c.Lat + off, Lon: c.Lon + off}
}

// Resolver tier names, in cascade order.
const (
	TierResolved   = "resolved"
	TierGeocoder   = "geocoder"
	TierHomeCity   = "home-city"
	TierCityTable  = "city-table"
	TierRegion     = "region"
	TierHomeRegion = "home-region"
	TierDefault    = "default"
)

type resolveStep struct {
	name string
	fn   func(ctx context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool)
}

// CoordinateResolver turns a location descriptor into a coordinate through
// an ordered fallback cascade. The first tier that answers wins and the
// final tier always answers, so resolution never fails.
//
// The resolver is safe for concurrent use.
type CoordinateResolver struct {
	geocoder ports.Geocoder
	cache    ports.GeocodeCache
	tables   *geo.Tables
	home     HomeCity
	variants []string
	timeout  time.Duration
	steps    []resolveStep
}

type ResolverOption func(*CoordinateResolver)

// WithGeocoder enables the address-level tier. cache may be nil.
func WithGeocoder(g ports.Geocoder, cache ports.GeocodeCache) ResolverOption {
	return func(r *CoordinateResolver) {
		r.geocoder = g
		r.cache = cache
	}
}

// WithGeocodeTimeout bounds each geocoder round trip.
func WithGeocodeTimeout(d time.Duration) ResolverOption {
	return func(r *CoordinateResolver) { r.timeout = d }
}

func NewCoordinateResolver(tables *geo.Tables, home HomeCity, opts ...ResolverOption) *CoordinateResolver {
	r := &CoordinateResolver{
		tables:  tables,
		home:    home,
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, v := range home.Variants {
		if f := geo.FoldName(v); f != "" {
			r.variants = append(r.variants, f)
		}
	}

	r.steps = []resolveStep{
		{name: TierResolved, fn: r.fromResolved},
		{name: TierGeocoder, fn: r.fromGeocoder},
		{name: TierHomeCity, fn: r.fromHomeCity},
		{name: TierCityTable, fn: r.fromCityTable},
		{name: TierRegion, fn: r.fromRegion},
		{name: TierHomeRegion, fn: r.fromHomeRegion},
	}

	return r
}

// Resolve always returns a coordinate.
func (r *CoordinateResolver) Resolve(ctx context.Context, loc domain.LocationDescriptor) domain.Coordinates {
	c, _ := r.ResolveTier(ctx, loc)
	return c
}

// ResolveTier also reports which tier produced the coordinate.
func (r *CoordinateResolver) ResolveTier(ctx context.Context, loc domain.LocationDescriptor) (domain.Coordinates, string) {
	for _, s := range r.steps {
		c, ok := s.fn(ctx, loc)
		if !ok {
			continue
		}
		// A tier that produces an unusable coordinate is treated as a miss.
		if err := c.Validate(); err != nil {
			log.Printf("resolver: tier=%s produced invalid coordinate city=%q state=%q err=%v", s.name, loc.City, loc.State, err)
			continue
		}
		return c, s.name
	}
	return r.home.Coordinates(), TierDefault
}

func (r *CoordinateResolver) fromResolved(_ context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	if loc.Resolved == nil {
		return domain.Coordinates{}, false
	}
	return *loc.Resolved, true
}

func (r *CoordinateResolver) fromGeocoder(ctx context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	if r.geocoder == nil || loc.ClientID == 0 || strings.TrimSpace(loc.Address) == "" {
		return domain.Coordinates{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	key := geocodeKey(loc)

	// Cache failures degrade to a geocoder call.
	if r.cache != nil {
		hits, err := r.cache.GetMany(ctx, []string{key})
		if err != nil {
			log.Printf("resolver: geocode cache read failed key=%q err=%v", key, err)
		} else if c, ok := hits[key]; ok {
			return c, true
		}
	}

	c, err := r.geocoder.Geocode(ctx, ports.GeocodeRequest{
		ClientID: loc.ClientID,
		Address:  loc.Address,
		City:     loc.City,
		State:    loc.State,
	})
	if err != nil {
		log.Printf("resolver: geocoder fallthrough client_id=%d err=%v", loc.ClientID, err)
		return domain.Coordinates{}, false
	}
	if err := c.Validate(); err != nil {
		log.Printf("resolver: geocoder returned invalid coordinate client_id=%d err=%v", loc.ClientID, err)
		return domain.Coordinates{}, false
	}

	if r.cache != nil {
		if err := r.cache.PutMany(ctx, map[string]domain.Coordinates{key: c}); err != nil {
			log.Printf("resolver: geocode cache write failed key=%q err=%v", key, err)
		}
	}

	return c, true
}

func (r *CoordinateResolver) fromHomeCity(_ context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	city := geo.FoldName(loc.City)
	if city == "" {
		return domain.Coordinates{}, false
	}
	for _, v := range r.variants {
		if strings.Contains(city, v) {
			return markerOffset(r.home.Coordinates(), loc.ClientID), true
		}
	}
	return domain.Coordinates{}, false
}

func (r *CoordinateResolver) fromCityTable(_ context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	if r.tables == nil {
		return domain.Coordinates{}, false
	}
	return r.tables.City(loc.City)
}

func (r *CoordinateResolver) fromRegion(_ context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	region := geo.FoldRegion(loc.State)
	if r.tables == nil || region == "" || region == geo.FoldRegion(r.home.Region) {
		return domain.Coordinates{}, false
	}
	return r.tables.Region(region)
}

func (r *CoordinateResolver) fromHomeRegion(_ context.Context, loc domain.LocationDescriptor) (domain.Coordinates, bool) {
	region := geo.FoldRegion(loc.State)
	if region == "" || region != geo.FoldRegion(r.home.Region) {
		return domain.Coordinates{}, false
	}
	return markerOffset(r.home.Coordinates(), loc.ClientID), true
}

// geocodeKey normalizes the address so equivalent spellings share a cache row.
func geocodeKey(loc domain.LocationDescriptor) string {
	return fmt.Sprintf("%d|%s|%s|%s",
		loc.ClientID,
		geo.FoldName(loc.Address),
		geo.FoldName(loc.City),
		geo.FoldRegion(loc.State),
	)
}
