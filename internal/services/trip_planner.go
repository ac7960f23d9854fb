package services

import (
	"context"
	"fmt"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/platform/obs"

	"golang.org/x/sync/errgroup"
)

// resolveConcurrency bounds simultaneous resolver calls per draft.
const resolveConcurrency = 5

// TripPlan is the output of ComputeRoute. Draft carries the attached route
// and cost breakdown.
type TripPlan struct {
	Draft  domain.TripDraft     `json:"draft"`
	Origin domain.Coordinates   `json:"origin"`
	Stops  []domain.Coordinates `json:"stops"`
	Route  domain.RouteResult   `json:"route"`
	Cost   domain.CostBreakdown `json:"cost"`
}

// TripPlanner is the idempotent computeRoute operation: resolve, order,
// price. It holds no state between calls.
type TripPlanner struct {
	resolver *CoordinateResolver
	costs    *CostModel
}

func NewTripPlanner(resolver *CoordinateResolver, costs *CostModel) *TripPlanner {
	return &TripPlanner{resolver: resolver, costs: costs}
}

// ComputeRoute validates the draft, resolves every location and prices the
// trip. Call it again whenever the draft changes.
func (p *TripPlanner) ComputeRoute(ctx context.Context, draft domain.TripDraft) (_ *TripPlan, err error) {
	defer obs.Time(ctx, "planner.ComputeRoute")(&err)

	if err := ValidateDraft(draft); err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	locations := make([]domain.LocationDescriptor, 0, 1+len(draft.Destinations))
	locations = append(locations, draft.Origin)
	locations = append(locations, draft.Destinations...)

	coords := make([]domain.Coordinates, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveConcurrency)
	for i, loc := range locations {
		g.Go(func() error {
			coords[i] = p.resolver.Resolve(gctx, loc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute route: resolve locations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	origin, stops := coords[0], coords[1:]

	cost, route, err := p.costs.Estimate(draft, origin, stops)
	if err != nil {
		return nil, fmt.Errorf("compute route: %w", err)
	}

	for i := range route.Stops {
		route.Stops[i].Location = draft.Destinations[route.Stops[i].Index]
	}

	draft.Route = route
	draft.Cost = &cost

	return &TripPlan{
		Draft:  draft,
		Origin: origin,
		Stops:  stops,
		Route:  *route,
		Cost:   cost,
	}, nil
}

// ValidateDraft enforces the preconditions of the cost model.
func ValidateDraft(d domain.TripDraft) error {
	if len(d.Destinations) == 0 {
		return fmt.Errorf("draft %q has no destinations: %w", d.Key, domain.ErrPreconditionViolated)
	}
	for i, dest := range d.Destinations {
		if !dest.HasPlace() {
			return fmt.Errorf("draft %q destination %d has no city or region: %w", d.Key, i, domain.ErrPreconditionViolated)
		}
	}
	switch d.Kind {
	case "", domain.TripOneWay, domain.TripRoundTrip:
	default:
		return fmt.Errorf("draft %q: unknown trip kind %q: %w", d.Key, d.Kind, domain.ErrPreconditionViolated)
	}
	if d.Headcount < 0 {
		return fmt.Errorf("draft %q: headcount %d: %w", d.Key, d.Headcount, domain.ErrPreconditionViolated)
	}
	return nil
}
