package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"travel-route-service/internal/api/dto"
	"travel-route-service/internal/domain"
	"travel-route-service/internal/services"
)

func toLocation(l dto.LocationRequest) (domain.LocationDescriptor, error) {
	loc := domain.LocationDescriptor{
		City:     strings.TrimSpace(l.City),
		State:    strings.TrimSpace(l.State),
		Address:  strings.TrimSpace(l.Address),
		ClientID: l.ClientID,
	}

	switch {
	case l.Lat != nil && l.Lon != nil:
		c := domain.Coordinates{Lat: *l.Lat, Lon: *l.Lon}
		if err := c.Validate(); err != nil {
			return domain.LocationDescriptor{}, err
		}
		loc.Resolved = &c
	case l.Lat != nil || l.Lon != nil:
		return domain.LocationDescriptor{}, errors.New("lat and lon must be given together")
	}

	return loc, nil
}

func (h *TripHandler) toDraft(key string, req dto.DraftRequest) (domain.TripDraft, error) {
	if len(req.Destinations) == 0 {
		return domain.TripDraft{}, errors.New("at least one destination is required")
	}
	if req.Headcount < 0 {
		return domain.TripDraft{}, errors.New("headcount must be positive")
	}

	kind := domain.TripKind(strings.TrimSpace(req.Kind))
	switch kind {
	case "":
		kind = domain.TripOneWay
	case domain.TripOneWay, domain.TripRoundTrip:
	default:
		return domain.TripDraft{}, fmt.Errorf("kind must be %q or %q", domain.TripOneWay, domain.TripRoundTrip)
	}

	origin := h.DefaultOrigin
	if req.Origin != nil {
		o, err := toLocation(*req.Origin)
		if err != nil {
			return domain.TripDraft{}, fmt.Errorf("origin: %w", err)
		}
		origin = o
	}

	dests := make([]domain.LocationDescriptor, 0, len(req.Destinations))
	for i, d := range req.Destinations {
		loc, err := toLocation(d)
		if err != nil {
			return domain.TripDraft{}, fmt.Errorf("destination %d: %w", i, err)
		}
		dests = append(dests, loc)
	}

	depart := h.now()
	if req.DepartAt != nil {
		depart = *req.DepartAt
	}
	if req.ReturnAt != nil && req.ReturnAt.Before(depart) {
		return domain.TripDraft{}, errors.New("return_at must not be before depart_at")
	}

	return domain.TripDraft{
		Key:          key,
		ClientID:     req.ClientID,
		Origin:       origin,
		Destinations: dests,
		Kind:         kind,
		Headcount:    req.Headcount,
		DepartAt:     depart,
		ReturnAt:     req.ReturnAt,
	}, nil
}

func toRouteResponse(p *services.TripPlan) dto.RouteResponse {
	stops := make([]dto.RouteStopResponse, 0, len(p.Route.Stops))
	for _, s := range p.Route.Stops {
		stops = append(stops, dto.RouteStopResponse{
			Index:    s.Index,
			City:     s.Location.City,
			State:    s.Location.State,
			ClientID: s.Location.ClientID,
			Lat:      s.Coordinates.Lat,
			Lon:      s.Coordinates.Lon,
			LegKm:    s.LegKm,
		})
	}

	return dto.RouteResponse{
		Origin:         p.Route.Origin,
		Stops:          stops,
		OpenDistanceKm: p.Route.OpenDistanceKm,
		ClosingLegKm:   p.Route.ClosingLegKm,
		Bounds:         p.Route.Bounds,
		Cost: dto.CostResponse{
			CostBreakdown: p.Cost,
			TotalCost:     p.Cost.Total(),
		},
	}
}

func toEligibilityResponse(r domain.EligibilityReport) dto.EligibilityResponse {
	return dto.EligibilityResponse{
		ClientID:                  r.ClientID,
		MayProceedWithoutOverride: r.MayProceedWithoutOverride(),
		Verdicts:                  r.Verdicts,
	}
}

func toDecisionResponse(d domain.AuthorizationDecision) dto.DecisionResponse {
	return dto.DecisionResponse{
		AuthorizationDecision: d,
		AwaitingAir:           d.State == domain.DecisionPending && d.NeedsAirConfirmation(),
		AwaitingOverride:      d.State == domain.DecisionPending && d.NeedsOverride(),
		Persistable:           d.MayPersist(),
	}
}

func utcNow() time.Time { return time.Now().UTC() }
