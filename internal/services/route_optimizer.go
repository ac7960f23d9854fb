package services

import (
	"errors"
	"fmt"
	"math"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/geo"
)

// Order stops using a greedy nearest-neighbor algorithm.
//
// The algorithm minimizes the straight-line leg at each step and never
// backtracks. It does not attempt a globally minimal tour; a business trip
// visits a handful of clients, where the greedy order is good enough.
// Ties go to the stop that appears first in the input.
//
// The closing leg back to origin is always computed and reported
// separately from the open route distance.
func NearestNeighborRoute(origin domain.Coordinates, stops []domain.Coordinates) (*domain.RouteResult, error) {
	if len(stops) == 0 {
		return nil, fmt.Errorf("plan route: stops must be non-empty: %w", domain.ErrPreconditionViolated)
	}

	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("plan route: origin: %w", err)
	}

	visited := make([]bool, len(stops))
	current := origin

	route := make([]domain.RouteStop, 0, len(stops))
	totalKm := 0.0

	for len(route) < len(stops) {
		bestIdx := -1
		minKm := math.Inf(1)

		// Select next stop by minimum leg distance (greedy step).
		// Strict comparison keeps the first occurrence on ties.
		for i, s := range stops {
			if visited[i] {
				continue
			}
			d, err := geo.DistanceKm(current, s)
			if err != nil {
				return nil, fmt.Errorf("plan route: stop %d: %w", i, err)
			}
			if d < minKm {
				minKm = d
				bestIdx = i
			}
		}

		if bestIdx < 0 {
			return nil, errors.New("plan route: failed to select next stop")
		}

		totalKm += minKm
		route = append(route, domain.RouteStop{
			Index:       bestIdx,
			Coordinates: stops[bestIdx],
			LegKm:       minKm,
		})

		visited[bestIdx] = true
		current = stops[bestIdx]
	}

	closing, err := geo.DistanceKm(current, origin)
	if err != nil {
		return nil, fmt.Errorf("plan route: closing leg: %w", err)
	}

	bounds, err := geo.Bounds(append([]domain.Coordinates{origin}, stops...))
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	return &domain.RouteResult{
		Origin:         origin,
		Stops:          route,
		OpenDistanceKm: totalKm,
		ClosingLegKm:   closing,
		Bounds:         bounds,
	}, nil
}
