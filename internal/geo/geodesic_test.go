package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel-route-service/internal/domain"
)

func TestDistanceKmKnownPair(t *testing.T) {
	saoPaulo := domain.Coordinates{Lat: -23.5505, Lon: -46.6333}
	rio := domain.Coordinates{Lat: -22.9068, Lon: -43.1729}

	d, err := DistanceKm(saoPaulo, rio)
	require.NoError(t, err)
	assert.InDelta(t, 360.7, d, 2.0)
}

func TestDistanceKmSymmetric(t *testing.T) {
	points := []domain.Coordinates{
		{Lat: -23.7150, Lon: -46.5550},
		{Lat: 0, Lon: 0},
		{Lat: 89.9, Lon: 179.9},
		{Lat: -89.9, Lon: -179.9},
		{Lat: 51.5074, Lon: -0.1278},
		{Lat: -33.8688, Lon: 151.2093},
	}

	for _, a := range points {
		for _, b := range points {
			ab, err := DistanceKm(a, b)
			require.NoError(t, err)
			ba, err := DistanceKm(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9, "a=%v b=%v", a, b)
		}
	}
}

func TestDistanceKmSamePointIsZero(t *testing.T) {
	p := domain.Coordinates{Lat: -23.7150, Lon: -46.5550}
	d, err := DistanceKm(p, p)
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestDistanceKmInvalid(t *testing.T) {
	ok := domain.Coordinates{Lat: 1, Lon: 1}
	cases := []domain.Coordinates{
		{Lat: math.NaN(), Lon: 0},
		{Lat: 0, Lon: math.Inf(1)},
		{Lat: 91, Lon: 0},
		{Lat: 0, Lon: -180.5},
	}
	for _, c := range cases {
		_, err := DistanceKm(ok, c)
		assert.True(t, errors.Is(err, domain.ErrInvalidCoordinate), "coord %v", c)
		_, err = DistanceKm(c, ok)
		assert.True(t, errors.Is(err, domain.ErrInvalidCoordinate), "coord %v", c)
	}
}

func TestCentroid(t *testing.T) {
	c, err := Centroid([]domain.Coordinates{{Lat: -20, Lon: -40}, {Lat: -22, Lon: -44}})
	require.NoError(t, err)
	assert.InDelta(t, -21, c.Lat, 1e-12)
	assert.InDelta(t, -42, c.Lon, 1e-12)

	_, err = Centroid(nil)
	assert.ErrorIs(t, err, domain.ErrPreconditionViolated)
}

func TestBounds(t *testing.T) {
	box, err := Bounds([]domain.Coordinates{{Lat: -20, Lon: -40}, {Lat: -25, Lon: -38}, {Lat: -21, Lon: -47}})
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lat: -25, Lon: -47}, box.Min)
	assert.Equal(t, domain.Coordinates{Lat: -20, Lon: -38}, box.Max)
}
