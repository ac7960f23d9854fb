package ports

import (
	"context"
	"travel-route-service/internal/domain"
)

// Persistent cache of address-level geocode results.
// Keys are normalized by the caller.
type GeocodeCache interface {
	GetMany(ctx context.Context, keys []string) (map[string]domain.Coordinates, error)
	PutMany(ctx context.Context, results map[string]domain.Coordinates) error
}
