package geo

import (
	_ "embed"
	"fmt"
	"log"
	"os"

	"github.com/jszwec/csvutil"

	"travel-route-service/internal/domain"
)

//go:embed data/cities.csv
var defaultCitiesCSV []byte

//go:embed data/regions.csv
var defaultRegionsCSV []byte

type cityRow struct {
	City  string  `csv:"city"`
	State string  `csv:"state"`
	Lat   float64 `csv:"lat"`
	Lon   float64 `csv:"lon"`
}

type regionRow struct {
	State string  `csv:"state"`
	Lat   float64 `csv:"lat"`
	Lon   float64 `csv:"lon"`
}

// Tables maps folded city names and region codes to approximate
// coordinates. Read-only after load.
type Tables struct {
	cities  map[string]domain.Coordinates
	regions map[string]domain.Coordinates
}

// DefaultTables loads the embedded tables.
func DefaultTables() (*Tables, error) {
	return ParseTables(defaultCitiesCSV, defaultRegionsCSV)
}

// LoadTables reads table overrides from disk. Empty paths use the
// embedded defaults.
func LoadTables(citiesPath, regionsPath string) (*Tables, error) {
	cities, regions := defaultCitiesCSV, defaultRegionsCSV

	if citiesPath != "" {
		b, err := os.ReadFile(citiesPath)
		if err != nil {
			return nil, fmt.Errorf("load tables: read %q: %w", citiesPath, err)
		}
		cities = b
	}
	if regionsPath != "" {
		b, err := os.ReadFile(regionsPath)
		if err != nil {
			return nil, fmt.Errorf("load tables: read %q: %w", regionsPath, err)
		}
		regions = b
	}

	return ParseTables(cities, regions)
}

// ParseTables decodes city and region CSV data. Regions referenced by
// cities but absent from the region table get the centroid of their cities.
func ParseTables(citiesCSV, regionsCSV []byte) (*Tables, error) {
	var cityRows []cityRow
	if err := csvutil.Unmarshal(citiesCSV, &cityRows); err != nil {
		return nil, fmt.Errorf("parse tables: cities: %w", err)
	}

	var regionRows []regionRow
	if err := csvutil.Unmarshal(regionsCSV, &regionRows); err != nil {
		return nil, fmt.Errorf("parse tables: regions: %w", err)
	}

	t := &Tables{
		cities:  make(map[string]domain.Coordinates, len(cityRows)),
		regions: make(map[string]domain.Coordinates, len(regionRows)),
	}

	byRegion := make(map[string][]domain.Coordinates)
	for i, r := range cityRows {
		c := domain.Coordinates{Lat: r.Lat, Lon: r.Lon}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("parse tables: city row %d (%s): %w", i+1, r.City, err)
		}
		t.cities[FoldName(r.City)] = c
		if st := FoldRegion(r.State); st != "" {
			byRegion[st] = append(byRegion[st], c)
		}
	}

	for i, r := range regionRows {
		c := domain.Coordinates{Lat: r.Lat, Lon: r.Lon}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("parse tables: region row %d (%s): %w", i+1, r.State, err)
		}
		t.regions[FoldRegion(r.State)] = c
	}

	for st, pts := range byRegion {
		if _, ok := t.regions[st]; ok {
			continue
		}
		c, err := Centroid(pts)
		if err != nil {
			return nil, fmt.Errorf("parse tables: derive region %s: %w", st, err)
		}
		log.Printf("geo tables: derived centroid region=%s cities=%d lat=%.4f lon=%.4f", st, len(pts), c.Lat, c.Lon)
		t.regions[st] = c
	}

	return t, nil
}

// City looks up a folded city name.
func (t *Tables) City(name string) (domain.Coordinates, bool) {
	c, ok := t.cities[FoldName(name)]
	return c, ok
}

// Region looks up a region code.
func (t *Tables) Region(code string) (domain.Coordinates, bool) {
	c, ok := t.regions[FoldRegion(code)]
	return c, ok
}
