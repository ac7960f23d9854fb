package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/ports"
)

type fakeGeocoder struct {
	calls atomic.Int32
	fn    func(ctx context.Context, r ports.GeocodeRequest) (domain.Coordinates, error)
}

func (g *fakeGeocoder) Geocode(ctx context.Context, r ports.GeocodeRequest) (domain.Coordinates, error) {
	g.calls.Add(1)
	return g.fn(ctx, r)
}

func geocodeReturns(c domain.Coordinates) *fakeGeocoder {
	return &fakeGeocoder{fn: func(context.Context, ports.GeocodeRequest) (domain.Coordinates, error) {
		return c, nil
	}}
}

// geocodeBlocks waits for the caller's deadline.
func geocodeBlocks() *fakeGeocoder {
	return &fakeGeocoder{fn: func(ctx context.Context, _ ports.GeocodeRequest) (domain.Coordinates, error) {
		<-ctx.Done()
		return domain.Coordinates{}, errors.Join(domain.ErrGeocodeUnavailable, ctx.Err())
	}}
}

type fakeCache struct {
	mu      sync.Mutex
	m       map[string]domain.Coordinates
	readErr error
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string]domain.Coordinates{}} }

func (c *fakeCache) GetMany(_ context.Context, keys []string) (map[string]domain.Coordinates, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readErr != nil {
		return nil, c.readErr
	}
	out := map[string]domain.Coordinates{}
	for _, k := range keys {
		if v, ok := c.m[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (c *fakeCache) PutMany(_ context.Context, m map[string]domain.Coordinates) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		c.m[k] = v
	}
	return nil
}
